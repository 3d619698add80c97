package entity

import (
	"encoding/json"
	"fmt"
)

// Stage identifies one of the four fixed approval slots
type Stage int

const (
	StageSupervisor Stage = iota
	StageDepartmentHead
	StageBenefitsCoordinator
	StageFinal

	// StageCount is the fixed length of every approval chain
	StageCount = 4
)

var stageNames = [StageCount]string{
	"SUPERVISOR",
	"DEPARTMENT_HEAD",
	"BENEFITS_COORDINATOR",
	"FINAL",
}

// String returns the stage name
func (s Stage) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("STAGE(%d)", int(s))
	}
	return stageNames[s]
}

// IsValid reports whether s addresses a chain slot
func (s Stage) IsValid() bool {
	return s >= StageSupervisor && s < StageCount
}

// Next returns the following stage, false after the final stage
func (s Stage) Next() (Stage, bool) {
	if s+1 >= StageCount {
		return s, false
	}
	return s + 1, true
}

// ApprovalStatus is the status of a single chain slot
type ApprovalStatus string

const (
	ApprovalUnassigned   ApprovalStatus = "UNASSIGNED"
	ApprovalAwaiting     ApprovalStatus = "AWAITING"
	ApprovalApproved     ApprovalStatus = "APPROVED"
	ApprovalDenied       ApprovalStatus = "DENIED"
	ApprovalAutoApproved ApprovalStatus = "AUTO_APPROVED"
	ApprovalBypassed     ApprovalStatus = "BYPASSED"
)

// IsResolvedApproval reports whether the slot has been passed on the approving path
func (s ApprovalStatus) IsResolvedApproval() bool {
	return s == ApprovalApproved || s == ApprovalAutoApproved || s == ApprovalBypassed
}

// IsValid reports whether s is a known slot status
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalUnassigned, ApprovalAwaiting, ApprovalApproved,
		ApprovalDenied, ApprovalAutoApproved, ApprovalBypassed:
		return true
	}
	return false
}

// Approval is one chain slot
type Approval struct {
	Status   ApprovalStatus `json:"status"`
	Username string         `json:"username,omitempty"`
}

// ApprovalChain is the fixed supervisor, department head, benefits coordinator, final sequence
type ApprovalChain [StageCount]Approval

// NewApprovalChain returns a chain with every slot unassigned
func NewApprovalChain() ApprovalChain {
	var c ApprovalChain
	for i := range c {
		c[i] = Approval{Status: ApprovalUnassigned}
	}
	return c
}

// Slot returns a pointer to the slot for stage s
func (c *ApprovalChain) Slot(s Stage) *Approval {
	return &c[s]
}

// Awaiting returns the stage currently awaiting action
func (c *ApprovalChain) Awaiting() (Stage, bool) {
	for i := range c {
		if c[i].Status == ApprovalAwaiting {
			return Stage(i), true
		}
	}
	return 0, false
}

// AwaitingCount returns how many slots are AWAITING
func (c *ApprovalChain) AwaitingCount() int {
	n := 0
	for i := range c {
		if c[i].Status == ApprovalAwaiting {
			n++
		}
	}
	return n
}

// MarshalJSON renders the chain keyed by stage name
func (c ApprovalChain) MarshalJSON() ([]byte, error) {
	out := make(map[string]Approval, StageCount)
	for i := range c {
		out[Stage(i).String()] = c[i]
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a chain keyed by stage name
func (c *ApprovalChain) UnmarshalJSON(data []byte) error {
	var in map[string]Approval
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = NewApprovalChain()
	for i := range c {
		if a, ok := in[Stage(i).String()]; ok {
			c[i] = a
		}
	}
	return nil
}
