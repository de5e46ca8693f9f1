package adapterinfo

// Metadata captures static identifiers for the adapter. Centralising the values
// makes it easy to clone this repository for new adapters.
type Metadata struct {
	Name        string
	BinaryName  string
	Slug        string
	Description string
	GeneratorID string
	Version     string
}

// Info describes the current adapter.
var Info = Metadata{
	Name:        "Nupi Rhino Local Intent",
	BinaryName:  "plugin-intent-local-rhino",
	Slug:        "intent-local-rhino",
	Description: "Local speech-to-intent adapter backed by the Rhino engine.",
	GeneratorID: "intent-local-rhino",
	Version:     "0.1.0",
}

// Version returns the adapter release version.
func Version() string { return Info.Version }

// InferenceMetadata produces the standard metadata payload attached
// to emitted inferences.
func InferenceMetadata(engineVersion, contextName string) map[string]string {
	return map[string]string{
		"generator":      Info.GeneratorID,
		"adapter":        Info.Version,
		"engine_version": engineVersion,
		"context":        contextName,
	}
}
