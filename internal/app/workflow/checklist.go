package workflow

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/ikkim/staycert-backend/internal/app/model"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
)

type ChecklistShape string

const (
	ChecklistShapeList ChecklistShape = "list"
	ChecklistShapeMap  ChecklistShape = "map"
)

var (
	ErrChecklistFormat     = apperrors.Validation(apperrors.ChecklistInvalidFormat, "checklist must be a list of entries or a map of booleans")
	ErrChecklistIncomplete = apperrors.Validation(apperrors.ChecklistIncomplete, "compliance checklist is incomplete")
)

// ChecklistEntry is one submitted answer. Key holds an item id or an item name;
// for map submissions the map key is stored in both ID and Name.
type ChecklistEntry struct {
	ID      string
	Name    string
	Checked bool
}

// ChecklistSubmission is the decoded form of either accepted checklist shape:
//
//	[{"id": 3, "checked": true}, {"name": "Smoke detector", "checked": "yes"}]
//	{"3": true, "Smoke detector": true}
type ChecklistSubmission struct {
	Shape   ChecklistShape
	Entries []ChecklistEntry
}

// ChecklistFromMap builds a map-shaped submission keyed by id or name.
func ChecklistFromMap(values map[string]bool) ChecklistSubmission {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sub := ChecklistSubmission{Shape: ChecklistShapeMap}
	for _, k := range keys {
		sub.Entries = append(sub.Entries, ChecklistEntry{ID: k, Name: k, Checked: values[k]})
	}
	return sub
}

type listEntry struct {
	ID              json.RawMessage `json:"id"`
	ChecklistItemID json.RawMessage `json:"checklist_item_id"`
	Name            string          `json:"name"`
	Checked         json.RawMessage `json:"checked"`
}

func (s *ChecklistSubmission) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ChecklistSubmission{Shape: ChecklistShapeMap}
		return nil
	}

	switch data[0] {
	case '[':
		var raw []listEntry
		if err := json.Unmarshal(data, &raw); err != nil {
			return ErrChecklistFormat.Wrap(err)
		}
		sub := ChecklistSubmission{Shape: ChecklistShapeList}
		for _, e := range raw {
			id := rawKey(e.ID)
			if id == "" {
				id = rawKey(e.ChecklistItemID)
			}
			sub.Entries = append(sub.Entries, ChecklistEntry{
				ID:      id,
				Name:    e.Name,
				Checked: truthy(e.Checked),
			})
		}
		*s = sub
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return ErrChecklistFormat.Wrap(err)
		}
		values := make(map[string]bool, len(raw))
		for k, v := range raw {
			values[k] = truthy(v)
		}
		*s = ChecklistFromMap(values)
	default:
		return ErrChecklistFormat
	}
	return nil
}

func (s ChecklistSubmission) MarshalJSON() ([]byte, error) {
	if s.Shape == ChecklistShapeList {
		out := make([]map[string]interface{}, 0, len(s.Entries))
		for _, e := range s.Entries {
			entry := map[string]interface{}{"checked": e.Checked}
			if e.ID != "" {
				entry["id"] = e.ID
			}
			if e.Name != "" {
				entry["name"] = e.Name
			}
			out = append(out, entry)
		}
		return json.Marshal(out)
	}
	out := make(map[string]bool, len(s.Entries))
	for _, e := range s.Entries {
		out[e.ID] = e.Checked
	}
	return json.Marshal(out)
}

// rawKey renders a JSON number or string as a trimmed key.
func rawKey(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return strings.TrimSpace(string(raw))
}

func truthy(raw json.RawMessage) bool {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "y", "on", "checked":
			return true
		}
	}
	return false
}

// ChecklistResult is the canonical form of a submission against a property type's items.
type ChecklistResult struct {
	Satisfied map[uint]bool
	Missing   []string // item names, in item order
}

func (r ChecklistResult) Complete() bool {
	return len(r.Missing) == 0
}

// NormalizeChecklist resolves submission against items. An item is satisfied when
// any truthy entry matches its id or, failing that, its name (case-insensitive).
// Entries matching no item are ignored.
func NormalizeChecklist(items []model.ChecklistItem, submission ChecklistSubmission) ChecklistResult {
	result := ChecklistResult{Satisfied: make(map[uint]bool, len(items))}

	for _, item := range items {
		id := strconv.FormatUint(uint64(item.ID), 10)
		name := strings.TrimSpace(item.Name)

		satisfied := false
		for _, e := range submission.Entries {
			if !e.Checked {
				continue
			}
			if e.ID == id || (e.Name != "" && strings.EqualFold(strings.TrimSpace(e.Name), name)) {
				satisfied = true
				break
			}
		}

		result.Satisfied[item.ID] = satisfied
		if !satisfied {
			result.Missing = append(result.Missing, item.Name)
		}
	}
	return result
}

// ValidateChecklist returns a validation error listing missing item names, if any.
func ValidateChecklist(items []model.ChecklistItem, submission ChecklistSubmission) (ChecklistResult, error) {
	result := NormalizeChecklist(items, submission)
	if !result.Complete() {
		return result, ErrChecklistIncomplete.WithDetails(result.Missing...)
	}
	return result, nil
}
