package internal

// Version is the current liveroom release.
const Version = "0.1.0"
