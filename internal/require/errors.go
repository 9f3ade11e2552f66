package require

import "fmt"

// NotLoadedError reports a synchronous lookup for a module that was never
// loaded into the registry. Programmer error; not retried.
type NotLoadedError struct {
	Key string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("module %q is not loaded", e.Key)
}

// UnregisteredModuleError reports an async lookup for a key that is
// neither in the registry, nor a local reference, nor routed by any
// dynamic module rule. Programmer error; not retried.
type UnregisteredModuleError struct {
	Key string
}

func (e *UnregisteredModuleError) Error() string {
	return fmt.Sprintf("module %q is not registered and no dynamic rule matches it", e.Key)
}
