package router

import "fmt"

func panicToError(p interface{}) error {
	if err, ok := p.(error); ok {
		return fmt.Errorf("handler panic: %w", err)
	}
	return fmt.Errorf("handler panic: %v", p)
}
