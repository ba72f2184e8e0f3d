// Package player drives real-time playback of a parsed stream container.
//
// A Scheduler decodes the stream one block at a time and pushes the
// decoded samples of the selected channel pair to a Sink. It follows the
// stream's loop, plays performance regions on request, seeks by block and
// pauses without busy waiting. After each block it sleeps until the sink's
// backlog drops to about one block, so decoding never runs far ahead of
// the device.
//
// One goroutine runs the decode loop (Run or Start); any other goroutine
// may call the controls. Controls take effect at the next block boundary.
//
//	sched, err := player.New(stream, sink, player.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	if err := sched.Start(ctx); err != nil {
//		return err
//	}
//	...
//	sched.TogglePause()
//	sched.Stop()
//	return sched.Wait()
package player
