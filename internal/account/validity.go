package account

import "encoding/json"

// Validity maps draft keys to their latest validation outcome. Keys that were
// never validated read as invalid. Like Draft, it is copy-on-write.
type Validity struct {
	flags map[Field]bool
}

// NewValidity returns an empty validity record.
func NewValidity() Validity {
	return Validity{}
}

// Valid reports the last recorded outcome for f.
func (v Validity) Valid(f Field) bool {
	return v.flags[f]
}

// Has reports whether f was ever validated or reset.
func (v Validity) Has(f Field) bool {
	_, ok := v.flags[f]
	return ok
}

// With returns a copy of v with the outcome for f replaced.
func (v Validity) With(f Field, valid bool) Validity {
	next := make(map[Field]bool, len(v.flags)+1)
	for k, ok := range v.flags {
		next[k] = ok
	}
	next[f] = valid
	return Validity{flags: next}
}

// All reports whether every listed field is valid.
func (v Validity) All(fields ...Field) bool {
	for _, f := range fields {
		if !v.flags[f] {
			return false
		}
	}
	return true
}

// Len returns the number of recorded keys.
func (v Validity) Len() int {
	return len(v.flags)
}

func (v Validity) MarshalJSON() ([]byte, error) {
	if v.flags == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v.flags)
}

func (v *Validity) UnmarshalJSON(data []byte) error {
	var in map[Field]bool
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	flags := make(map[Field]bool, len(in))
	for k, ok := range in {
		if k.Known() {
			flags[k] = ok
		}
	}
	v.flags = flags
	return nil
}
