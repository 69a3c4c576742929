package param

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports an assignment outside a parameter's legal set.
type ValidationError struct {
	Parameter string
	Value     float64
	Allowed   []float64
}

func (e *ValidationError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, v := range e.Allowed {
		allowed[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprintf("%s: %v is not one of {%s}",
		e.Parameter, e.Value, strings.Join(allowed, ", "))
}

// Enum is a closed set of legal values.
type Enum struct {
	values []float64
}

// NewEnum returns an Enum over the given values, in the given order.
func NewEnum(values ...float64) Enum {
	v := make([]float64, len(values))
	copy(v, values)
	return Enum{values: v}
}

// Contains reports whether v is a member of the set.
func (e Enum) Contains(v float64) bool {
	for _, member := range e.values {
		if member == v {
			return true
		}
	}
	return false
}

// Values returns a copy of the legal values.
func (e Enum) Values() []float64 {
	v := make([]float64, len(e.values))
	copy(v, e.values)
	return v
}

// Validate returns a *ValidationError naming the parameter when v is not a member.
func (e Enum) Validate(name string, v float64) error {
	if e.Contains(v) {
		return nil
	}
	return &ValidationError{Parameter: name, Value: v, Allowed: e.Values()}
}
