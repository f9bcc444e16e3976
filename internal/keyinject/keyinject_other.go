//go:build !darwin

package keyinject

func postKeyCode(uint16) error {
	return ErrUnsupported
}
