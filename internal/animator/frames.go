package animator

// waitForFrame queues fn for the next yield. All callbacks queued before a
// yield fires run in that one yield; only one yield is requested from the
// port at a time.
func (a *Animator) waitForFrame(fn func() error) {
	a.frames = append(a.frames, fn)
	if !a.yieldRequested {
		a.yieldRequested = true
		a.port.RequestYield(a.target, a.runFrame)
	}
}

// runFrame runs the callbacks queued before this yield. Callbacks queued
// while it runs wait for the next yield.
//
// A failing callback stops the frame and its error is returned. It is not
// retried; the callbacks after it keep their place and run at the next yield.
func (a *Animator) runFrame() error {
	a.yieldRequested = false
	batch := a.frames
	a.frames = nil

	for i, fn := range batch {
		if err := fn(); err != nil {
			a.frames = append(batch[i+1:len(batch):len(batch)], a.frames...)
			if len(a.frames) > 0 && !a.yieldRequested {
				a.yieldRequested = true
				a.port.RequestYield(a.target, a.runFrame)
			}
			return err
		}
	}
	return nil
}

// PendingFrames returns the number of callbacks waiting for a yield.
func (a *Animator) PendingFrames() int {
	return len(a.frames)
}
