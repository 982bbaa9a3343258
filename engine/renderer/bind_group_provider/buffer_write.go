package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting the uniform buffer
// of a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Offset   uint64
	Data     []byte
}
