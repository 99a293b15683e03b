package config

// ModernHostVersion is the first host version able to run tests off its main
// loop.
const ModernHostVersion = 3000

// Capabilities describes what the host can do. It is resolved once at
// startup.
type Capabilities struct {
	HostVersion int
	// Deferred is true when cases may be spread across scheduler turns.
	Deferred bool
	// Async is true when runs may be posted to a separate loop.
	Async bool
}

// Legacy reports whether the host lacks both deferred and async execution.
func (c Capabilities) Legacy() bool {
	return !c.Deferred && !c.Async
}

// ResolveCapabilities maps a host version to its capabilities.
func ResolveCapabilities(hostVersion int) Capabilities {
	modern := hostVersion >= ModernHostVersion
	return Capabilities{
		HostVersion: hostVersion,
		Deferred:    modern,
		Async:       modern,
	}
}
