package dispatch

// StartLoop plays a cue as a loop held by req.Owner until StopLoop. A loop
// the owner already holds is stopped first.
func (s *Scheduler) StartLoop(req LoopStartRequest) (*Session, bool) {
	sess := &Session{CueID: req.CueID, Owner: req.Owner, State: Requested}
	if req.Owner == 0 {
		s.log.Warn("dispatch: loop start without owner", "cue", req.CueID)
		sess.State = Dropped
		return sess, false
	}
	if prev, ok := s.loops[req.Owner]; ok {
		s.log.Debug("dispatch: replacing loop", "owner", req.Owner, "cue", prev.Cue)
		s.StopLoop(LoopStopRequest{Owner: req.Owner})
	}

	if !s.start(sess, req.Position, req.Controls, true) {
		return sess, false
	}
	s.loops[req.Owner] = sess
	s.log.Debug("dispatch: loop started", "owner", req.Owner, "cue", sess.Cue, "voice", sess.Lease.Handle)
	return sess, true
}

// StopLoop ends the owner's loop. Unknown owners are ignored.
func (s *Scheduler) StopLoop(req LoopStopRequest) bool {
	sess, ok := s.loops[req.Owner]
	if !ok {
		return false
	}
	delete(s.loops, req.Owner)
	s.Complete(sess)
	s.log.Debug("dispatch: loop stopped", "owner", req.Owner, "cue", sess.Cue)
	return true
}

// Loop returns the owner's live loop session.
func (s *Scheduler) Loop(owner Owner) (*Session, bool) {
	sess, ok := s.loops[owner]
	return sess, ok
}

func (s *Scheduler) Loops() int {
	return len(s.loops)
}
