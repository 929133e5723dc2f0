// Package devcfg provides chunked access to the fixed-layout binary
// settings blob stored on a control-panel device.
//
// A device exposes its configuration as a single versioned blob behind a
// link that can only move bounded chunks per read. This package defines
// the blob layout ([Schema], [Header]), the link-agnostic [Transport]
// capability, and [Assemble], which reconstructs and validates the blob.
//
// # Quick Start
//
// Assemble settings from a device:
//
//	dev := mock.NewDevice()
//	defer dev.Close()
//
//	settings, err := devcfg.Assemble(ctx, dev)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(settings.Generation(), settings.ActiveProfile())
//
// Transport implementations exist for serial links ([serial] subpackage),
// HTTP-bridged devices ([http] subpackage), and an in-memory reference
// device ([mock] subpackage). All satisfy the same contract, so the
// assembler never knows which link it is driving.
//
// # Concurrency
//
// A transport is exclusively owned for the duration of one assembly pass
// and reads are issued strictly sequentially. Wrap a shared transport in
// a [Session] to serialize concurrent callers.
package devcfg
