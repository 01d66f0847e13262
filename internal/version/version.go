package version

// Version is the current pipeline release
const Version = "1.0.0"
