package kinematics

import (
	_ "embed"

	"github.com/pkg/errors"
	"go.viam.com/rdk/referenceframe"
)

//go:embed arx5_kinematics.json
var arx5KinematicsJSON []byte

// LoadModel parses the embedded ARX5 kinematic chain description, the same
// SVA-format JSON referenceframe.UnmarshalModelJSON the teacher module
// embeds for its own arm.
func LoadModel(name string) (referenceframe.Model, error) {
	model, err := referenceframe.UnmarshalModelJSON(arx5KinematicsJSON, name)
	if err != nil {
		return nil, errors.Wrap(err, "loading arx5 kinematic model")
	}
	return model, nil
}

// DefaultLinkMass is a rough per-joint downstream point-mass table (kg)
// used by InverseDynamics' gravity compensation. These are order-of-
// magnitude approximations, not a measured inertial model; the servo
// core treats gravity compensation as a best-effort feed-forward term,
// not a safety-critical computation.
func DefaultLinkMass() []float64 {
	return []float64{1.2, 1.0, 0.8, 0.4, 0.3, 0.2}
}
