package param

// Readable is a gettable, voltage-like (or any scalar) parameter owned by an
// instrument. Label and Unit return nil when the parameter does not declare them.
type Readable interface {
	Name() string
	Label() *string
	Unit() *string
	Get() (float64, error)
}

// Spec describes a settable parameter to the hosting layer.
type Spec struct {
	Name    string    `json:"Name"`
	Label   *string   `json:"Label"`
	Unit    *string   `json:"Unit"`
	Allowed []float64 `json:"Allowed"`
}

// Str returns a pointer to s, for optional label and unit fields.
func Str(s string) *string {
	return &s
}

// Deref returns the pointed-to string, or "" for an absent value.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
