package window

// Key identifies a keyboard key independently of the platform layer.
type Key int

// Keys the preview binds. Anything else arrives as KeyUnknown.
const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyR
	KeyS
	KeyT
	KeyF5
)

var keyNames = map[Key]string{
	KeyEscape: "escape",
	KeySpace:  "space",
	KeyR:      "r",
	KeyS:      "s",
	KeyT:      "t",
	KeyF5:     "f5",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}
