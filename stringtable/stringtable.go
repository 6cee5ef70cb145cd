/*

Package stringtable maintains the named, ordered string tables a demo's
signon phase creates and later packets update (spec §4.E): a shared
CreateStringTable/UpdateStringTable entry codec, a per-table history ring
used to back-reference recently seen keys, and the instancebaseline
special case the entity engine (package entity) seeds new entities from.

*/
package stringtable

import (
	"strconv"

	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/bitread"
	"github.com/icza/cs2replay/wire"
)

// historySize is the shared-prefix back-reference ring's depth (spec
// §4.E: "a 32-entry history of recently seen keys").
const historySize = 32

// Entry is one row of a Table: a key and its opaque user data payload.
type Entry struct {
	Key      string
	UserData []byte
}

// Table is one named, ordered collection of string entries, indexed both
// by position and by key.
type Table struct {
	Name       string
	MaxEntries int32

	entries []Entry
	byKey   map[string]int

	history    [historySize]string
	historyPos int
}

func newTable(name string, maxEntries int32) *Table {
	return &Table{Name: name, MaxEntries: maxEntries, byKey: make(map[string]int)}
}

// Len returns the number of entries currently in the table.
func (t *Table) Len() int { return len(t.entries) }

// EntryAt returns the entry at position idx, or false if out of range.
func (t *Table) EntryAt(idx int) (Entry, bool) {
	if idx < 0 || idx >= len(t.entries) {
		return Entry{}, false
	}
	return t.entries[idx], true
}

// ByKey returns the entry stored under key, or false if absent.
func (t *Table) ByKey(key string) (Entry, bool) {
	idx, ok := t.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return t.entries[idx], true
}

func (t *Table) set(idx int, e Entry) {
	for len(t.entries) <= idx {
		t.entries = append(t.entries, Entry{})
	}
	t.entries[idx] = e
	t.byKey[e.Key] = idx
	t.history[t.historyPos%historySize] = e.Key
	t.historyPos++
}

// Registry holds every Table a demo has created, keyed by name and by the
// small integer id CSVCMsg_UpdateStringTable references tables by.
type Registry struct {
	byName map[string]*Table
	byID   map[int32]*Table
	order  []*Table
}

// NewRegistry returns an empty string table Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Table), byID: make(map[int32]*Table)}
}

// Table returns the named table, or nil if it was never created.
func (r *Registry) Table(name string) *Table { return r.byName[name] }

// InstanceBaseline returns the raw baseline dump stored under decimal
// class id classID in the "instancebaseline" table (spec §4.E's special
// case, consulted by package entity when creating an entity of that
// class for the first time).
func (r *Registry) InstanceBaseline(classID int32) ([]byte, bool) {
	t := r.byName["instancebaseline"]
	if t == nil {
		return nil, false
	}
	e, ok := t.ByKey(strconv.Itoa(int(classID)))
	if !ok {
		return nil, false
	}
	return e.UserData, true
}

// Create ingests one CSVCMsg_CreateStringTable message, registering the
// named table under tableID and decoding its initial dump of entries.
func (r *Registry) Create(msg wire.CreateStringTable, tableID int32) error {
	t := newTable(msg.Name, msg.MaxEntries)
	r.byName[msg.Name] = t
	r.byID[tableID] = t
	r.order = append(r.order, t)

	userDataBits := int(msg.UserDataSizeBits)
	if userDataBits == 0 && msg.UserDataFixedSize {
		userDataBits = int(msg.UserDataSize) * 8
	}
	return decodeEntries(t, msg.StringData, int(msg.NumEntries), msg.UserDataFixedSize, userDataBits)
}

// Update ingests one CSVCMsg_UpdateStringTable message against the table
// previously registered under its table id.
func (r *Registry) Update(msg wire.UpdateStringTable) error {
	t := r.byID[msg.TableID]
	if t == nil {
		return cs2replay.Errorf(cs2replay.StringTableOverflow, "update references unknown table id %d", msg.TableID)
	}
	return decodeEntries(t, msg.StringData, int(msg.NumChangedEntries), false, -1)
}

// decodeEntries runs the run-length entry codec of spec §4.E over data,
// applying up to count updates to t. userDataFixedSize/userDataBits
// describe CreateStringTable's fixed-size user data framing; pass
// fixedSize=false, bits=-1 for UpdateStringTable's always-length-prefixed
// framing.
func decodeEntries(t *Table, data []byte, count int, fixedSize bool, bits int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(*cs2replay.Error); ok {
				err = e
				return
			}
			panic(p)
		}
	}()

	br := bitread.New(data)
	index := int32(-1)

	for i := 0; i < count && !br.EOF(); i++ {
		if br.ReadBit() {
			index++
		} else {
			index = int32(br.ReadVarU32())
		}

		var key string
		if br.ReadBit() {
			if br.ReadBit() {
				// Shared-prefix back reference: (history slot, suffix).
				histIdx := int(br.ReadBits(5))
				prefixLen := int(br.ReadBits(5))
				suffix := br.ReadString(1024)
				base := t.history[(t.historyPos-1-histIdx+historySize*2)%historySize]
				if prefixLen > len(base) {
					prefixLen = len(base)
				}
				key = base[:prefixLen] + suffix
			} else {
				key = br.ReadString(1024)
			}
		}

		var userData []byte
		if br.ReadBit() {
			n := bits
			if !fixedSize {
				n = int(br.ReadBits(17)) * 8
			}
			if n > 0 {
				br.ByteAlign()
				userData = br.ReadBytes(n / 8)
			}
		}

		t.set(int(index), Entry{Key: key, UserData: userData})
	}
	return nil
}
