package metadata

/** @brief A GPU buffer handle and the number of elements it holds. */
type Buffer struct {
	/** @brief The backend buffer object (vk.Buffer for the vulkan backend). */
	Handle interface{}
	/** @brief Vertex or index count. */
	Count uint32
}

/**
 * @brief Vertex buffers bound together at offset 0 and the index buffers
 * drawn from them, one indexed draw per index buffer.
 */
type Mesh struct {
	Vertices []Buffer
	Indices  []Buffer
}

func (m *Mesh) IndexCount() uint32 {
	var total uint32
	for _, b := range m.Indices {
		total += b.Count
	}
	return total
}
