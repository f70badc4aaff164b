package config

// BuildVersion is set at build time with -ldflags "-X .../internal/config.BuildVersion=x.y.z"
var BuildVersion string = "TO_BE_SET_AT_BUILD_TIME"
