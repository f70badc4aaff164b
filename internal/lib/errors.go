package lib

import "fmt"

// WrapError keeps parent matchable with errors.Is and appends child's message
func WrapError(parent error, child error) error {
	return fmt.Errorf("%w: %s", parent, child)
}
