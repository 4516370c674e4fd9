package tmpl

// Version is the library release identifier, overridable at link time.
var Version = "0.1.0"
