package internal

// Version is the krdeck release version.
const Version = "0.3.0"
