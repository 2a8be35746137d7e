package embedding

import "fmt"

// Model identifies one of the supported face embedding models.
// Each model produces vectors of a fixed dimension; the dimension is
// authoritative and checked on every generation.
type Model string

const (
	// ModelFaceNet is the FaceNet model producing 128-dimensional embeddings.
	ModelFaceNet Model = "facenet"

	// ModelArcFace is the InsightFace/ArcFace model producing 512-dimensional embeddings.
	ModelArcFace Model = "arcface"
)

// modelDimensions maps each supported model to its fixed output dimension.
var modelDimensions = map[Model]int{
	ModelFaceNet: 128,
	ModelArcFace: 512,
}

// SupportedModels returns the models the generator can run, in a fixed order.
func SupportedModels() []Model {
	return []Model{ModelFaceNet, ModelArcFace}
}

// ParseModel validates a model name and returns the corresponding Model.
func ParseModel(name string) (Model, error) {
	m := Model(name)
	if _, ok := modelDimensions[m]; !ok {
		return "", &Error{
			Kind: ErrUnsupportedModel,
			msg:  fmt.Sprintf("unsupported embedding model %q", name),
		}
	}
	return m, nil
}

// Dimensions returns the fixed output dimension for the model.
// Returns 0 for an unknown model.
func (m Model) Dimensions() int {
	return modelDimensions[m]
}

// InputSize returns the square input edge (in pixels) the model expects
// for face crops. Used when preparing crops before generation.
func (m Model) InputSize() int {
	switch m {
	case ModelFaceNet:
		return 160
	case ModelArcFace:
		return 112
	default:
		return 0
	}
}

func (m Model) String() string {
	return string(m)
}
