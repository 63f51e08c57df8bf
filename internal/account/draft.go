package account

import "encoding/json"

// Draft holds the unsaved customer form values. It is immutable: With returns
// a modified copy and never touches the receiver.
type Draft struct {
	values map[Field]string
}

// NewDraft returns a draft with every field empty.
func NewDraft() Draft {
	return Draft{}
}

// Get returns the value stored for f, or "" when unset.
func (d Draft) Get(f Field) string {
	return d.values[f]
}

// With returns a copy of d where f holds value.
func (d Draft) With(f Field, value string) Draft {
	next := make(map[Field]string, len(d.values)+1)
	for k, v := range d.values {
		next[k] = v
	}
	next[f] = value
	return Draft{values: next}
}

// Equal reports whether both drafts hold the same values.
func (d Draft) Equal(other Draft) bool {
	for _, f := range draftFields {
		if d.Get(f) != other.Get(f) {
			return false
		}
	}
	return true
}

func (d Draft) MarshalJSON() ([]byte, error) {
	out := make(map[Field]string, len(d.values))
	for k, v := range d.values {
		if v != "" {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func (d *Draft) UnmarshalJSON(data []byte) error {
	var in map[Field]string
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	values := make(map[Field]string, len(in))
	for k, v := range in {
		if k.Known() {
			values[k] = v
		}
	}
	d.values = values
	return nil
}
