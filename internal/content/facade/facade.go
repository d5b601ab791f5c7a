// Package facade is the command-facing surface of the content layer. It turns
// external names into kinds, delegates to the managers and reports every
// outcome as a Result; errors never escape it.
package facade

import (
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"voxelcraft.ai/customcontent/internal/protocol"
)

type Result struct {
	OK      bool
	Code    string
	Message string

	ContentID  string
	Entities   []uuid.UUID
	Items      int
	InstanceID uuid.UUID
}

func unknownID(category, name string) Result {
	return Result{Code: protocol.ErrUnknownID, Message: fmt.Sprintf("unknown %s id %q", category, name)}
}

func failed(contentID string, err error) Result {
	return Result{Code: protocol.CodeFor(err), Message: err.Error(), ContentID: contentID}
}

// AuditEntry is one command outcome as written to the audit trail.
type AuditEntry struct {
	Tick       uint64 `json:"tick"`
	Action     string `json:"action"`
	ContentID  string `json:"content_id"`
	Actor      string `json:"actor,omitempty"`
	World      string `json:"world,omitempty"`
	Pos        [3]int `json:"pos"`
	Amount     int    `json:"amount,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Audit actions.
const (
	ActionSpawn  = "SPAWN"
	ActionGive   = "GIVE"
	ActionPlace  = "PLACE"
	ActionRemove = "REMOVE"
)

type AuditLogger interface {
	WriteAudit(e AuditEntry) error
}

// Auditor stamps entries with the current tick and hands them to an
// AuditLogger. The zero value and a nil *Auditor drop everything.
type Auditor struct {
	sink  AuditLogger
	clock func() uint64
	log   *log.Logger
}

func NewAuditor(sink AuditLogger, clock func() uint64, logger *log.Logger) *Auditor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Auditor{sink: sink, clock: clock, log: logger}
}

func (a *Auditor) Record(e AuditEntry) {
	if a == nil || a.sink == nil {
		return
	}
	if a.clock != nil {
		e.Tick = a.clock()
	}
	if err := a.sink.WriteAudit(e); err != nil {
		a.log.Printf("audit %s %s: %v", e.Action, e.ContentID, err)
	}
}
