package sequencer

// A loop is active when LoopBegin points at an event strictly before
// LoopEnd's. Playing into the end bound first waits out the remaining time
// up to it (enterLoop), then jumps back on the next Advance (exitLoop).

func (it *Iterator) loopActive() bool {
	return it.LoopBegin.AtNext >= 0 && it.LoopBegin.AtNext < it.LoopEnd.AtNext
}

func (it *Iterator) enterLoop() bool {
	if !it.loopActive() {
		it.LoopEnd.Hide()
		return false
	}
	it.Play.Delay = it.LoopEnd.Delta - it.LoopEnd.Delay
	it.loopOver = true
	it.delay(it.Play.Delay)
	return true
}

func (it *Iterator) exitLoop() {
	// loopOver is cleared after the hook so it can tell a wrap from a start
	it.wrap()
	it.loopOver = false
	it.Play.SetToLocator(&it.LoopBegin)
	it.delay(it.Play.Delay)
}

func (it *Iterator) startLoop() bool {
	if !it.loopActive() {
		it.LoopEnd.Hide()
		return false
	}
	it.loopOver = false
	it.wrap()
	it.Play.SetToLocator(&it.LoopBegin)
	it.delay(it.Play.Delay)
	return true
}

// Loop sets loop bounds to the times from and to and jumps to from. It
// returns false, and drops any loop, when the bounds are unusable.
func (it *Iterator) Loop(from, to float64) bool {
	if from < 0 || to <= from {
		it.StopLoop()
		return false
	}
	it.LoopBegin.SetToTime(from)
	it.LoopEnd.SetToTime(to)
	it.restarted = true
	return it.startLoop()
}

// Reloop jumps back to the start of the current loop.
func (it *Iterator) Reloop() bool {
	it.restarted = true
	return it.startLoop()
}

func (it *Iterator) StopLoop() {
	it.LoopBegin.Reset()
	it.LoopEnd.Hide()
}
