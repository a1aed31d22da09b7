// Package force provides force models contributing accelerations and
// acceleration partials to the augmented EKF dynamics.
//
// Each model implements [Model]:
//
//   - [Gravity]: central body point mass with the J2 oblateness term
//   - [ThirdBody]: point-mass perturber at a fixed position
//
// Models know nothing about each other. A model asked for a partial it does
// not implement contributes exactly zero, which is what lets the assembler
// sum any set of models into one partials matrix.
//
// # Partial names
//
// Partials are looked up by the name "d<row agent> wrt <column agent>",
// e.g. "dX wrt Y" is the partial of the X acceleration component with
// respect to the Y position.
package force
