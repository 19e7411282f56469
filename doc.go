// Package slotor provides a multi-slot test agent.
//
// Each slot runs a long test on an external harness split into batches of
// loops. A slot is driven by a state machine; batch execution, process
// monitoring and report delivery are wired together by the Runtime exposed
// from the Service container:
//
//	srv, _ := slotor.New(slotor.WithController(harness))
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	_ = rt.StartTest(ctx, 0, &test.Config{Drive: "E", LoopCount: 100, LoopStep: 10})
//	defer rt.Shutdown(ctx)
//
// Commands received as JSON can be dispatched with Runtime.HandleCommand.
package slotor
