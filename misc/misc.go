package misc

// NoCopy can be embedded in structs that must not be copied after first use.
// go vet's copylocks check flags copies of anything with Lock/Unlock methods.
type NoCopy struct{}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}

func CopyBytes(a []byte) []byte {
	b := make([]byte, len(a))
	copy(b, a)
	return b
}
