// Package config holds the kernel's configuration repository and the named
// drivers that populate it.
//
// A Manager resolves a Driver by name. The "local" driver reads config.yml,
// a .env file and the process environment through Viper; the "env" driver
// reads CORE_* variables only.
//
//	repo := config.NewRepository()
//	manager := config.NewDefaultManager("kernel")
//	driver, err := manager.Driver(repo.GetString(config.KeyConfigLoader, config.DefaultLoader))
//	if err != nil {
//	    return err
//	}
//	if err := driver.LoadConfiguration(ctx, repo); err != nil {
//	    return err
//	}
//	cfg, err := config.Load(repo)
package config
