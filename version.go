package canopy

// Version is the canopy release version. Overridden at build time via
// -ldflags "-X github.com/aretw0/canopy.Version=...".
var Version = "0.1.0"
