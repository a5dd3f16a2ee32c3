package content

// SceneNode places one resource in a scene. Mesh and Texture are
// resource path strings resolved by the caller; either may be empty.
type SceneNode struct {
	Name     string
	Mesh     string
	Texture  string
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// Scene is a decoded scene description: a named, ordered list of nodes.
type Scene struct {
	Name  string
	Nodes []SceneNode
}
