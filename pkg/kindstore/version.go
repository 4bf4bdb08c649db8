package kindstore

// Version is the kindstore release, reported by the CLI.
const Version = "v0.1.0"
