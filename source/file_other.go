//go:build !linux

package source

const directFlag = 0

func isDirectUnsupported(error) bool { return false }

func adviseRandom(uintptr) error { return nil }
