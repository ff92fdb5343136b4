// Package stdx holds small helpers for program start-up code.
package stdx

// Must1 returns v, panicking when err is not nil. Use it only where a failure
// means the process cannot start, such as building a renderer in main.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
