// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"encoding/json"
	"fmt"
	"time"

	"vawter.tech/scope/internal/state"
)

// An Info is a point-in-time summary of a [Scope], intended for
// observability data.
type Info struct {
	Deadline time.Time // Zero if the scope is unbounded.
	Err      error     // The result of Exit, valid once State is final.
	ID       string
	Kind     Kind
	Name     string
	Started  time.Time
	State    string // running, stopping, success, suppressed, or failed.
}

// Info returns a snapshot of the Scope.
func (s *Scope) Info() Info {
	ret := Info{
		Deadline: s.deadline,
		ID:       s.id,
		Kind:     s.kind,
		Name:     s.cfg.name,
		Started:  s.started,
	}
	ptr := s.outcome.Load()
	switch {
	case ptr == nil && s.st.Phase() == state.Stopping:
		ret.State = "stopping"
	case ptr == nil:
		// Exit may be in progress.
		ret.State = "running"
	case *ptr != nil:
		ret.Err = *ptr
		ret.State = "failed"
	case s.absorbed.Load():
		ret.State = "suppressed"
	default:
		ret.State = "success"
	}
	return ret
}

// MarshalJSON summarizes the Info.
func (i Info) MarshalJSON() ([]byte, error) {
	p := struct {
		Deadline time.Time `json:"deadline,omitzero"`
		Error    string    `json:"error,omitzero"`
		ID       string    `json:"id,omitzero"`
		Kind     string    `json:"kind"`
		Name     string    `json:"name,omitzero"`
		Started  time.Time `json:"started,omitzero"`
		State    string    `json:"state"`
	}{
		Deadline: i.Deadline,
		ID:       i.ID,
		Kind:     i.Kind.String(),
		Name:     i.Name,
		Started:  i.Started,
		State:    i.State,
	}
	if i.Err != nil {
		p.Error = i.Err.Error()
	}
	return json.Marshal(p)
}

// String is for debugging use only.
func (i Info) String() string {
	st := i.State
	if i.Err != nil {
		st = fmt.Sprintf("%s %v", st, i.Err)
	}
	return fmt.Sprintf("%s %s (started %s) (%s)",
		i.Kind, i.Name, i.Started.Format(time.RFC3339Nano), st)
}
