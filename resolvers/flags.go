package resolvers

import (
	"strings"
	"sync"

	"github.com/gabisonia/go-clausenav/clause"
)

type flagEntry struct {
	flag    string
	operand clause.Operand
}

// Flags is a map-backed clause.FlagRegistry. Field names compare
// case-insensitively, flags exactly. Operands are matched structurally.
type Flags struct {
	mu      sync.RWMutex
	byField map[string][]flagEntry
}

// NewFlags creates an empty registry.
func NewFlags() *Flags {
	return &Flags{byField: map[string][]flagEntry{}}
}

// Register maps flag to operand for every given field name. Registering
// the same flag again replaces its operand.
func (f *Flags) Register(flag string, operand clause.Operand, fields ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range fields {
		key := fieldKey(field)
		entries := f.byField[key]
		replaced := false
		for i := range entries {
			if entries[i].flag == flag {
				entries[i].operand = operand
				replaced = true
			}
		}
		if !replaced {
			entries = append(entries, flagEntry{flag: flag, operand: operand})
		}
		f.byField[key] = entries
	}
}

// FlagsForOperand returns the flags registered for operand, in
// registration order.
func (f *Flags) FlagsForOperand(field string, operand clause.Operand) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []string
	for _, entry := range f.byField[fieldKey(field)] {
		if clause.OperandsEqual(entry.operand, operand) {
			out = append(out, entry.flag)
		}
	}
	return out
}

func (f *Flags) OperandForFlag(field string, flag string) (clause.Operand, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, entry := range f.byField[fieldKey(field)] {
		if entry.flag == flag {
			return entry.operand, true
		}
	}
	return nil, false
}

func fieldKey(field string) string {
	return strings.ToLower(strings.TrimSpace(field))
}
