// Package assert guards constructor inputs that have no sensible
// recovery path. A failed assertion is a wiring bug, not a runtime
// condition, so it panics.
package assert

func NotNil(value any) {
	if value == nil {
		panic("assert: value must not be nil")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("assert: string must not be empty")
	}
}
