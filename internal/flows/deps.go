package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Gate  GateDeps
	Enter EnterDeps
	Exit  ExitDeps
}
