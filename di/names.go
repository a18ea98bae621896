package di

// KernelNames lists the keys the kernel binds before providers register.
type KernelNames struct {
	Config     string
	Repository string
	Logger     string
	Events     string
	Providers  string
}

// Kernel contains the keys of the kernel's own bindings.
var Kernel = KernelNames{
	Config:     "kernel.config",
	Repository: "kernel.config.repository",
	Logger:     "kernel.logger",
	Events:     "kernel.events",
	Providers:  "kernel.providers",
}
