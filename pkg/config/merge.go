package config

import "dario.cat/mergo"

// resolveEngineConfig fills any zero-valued field in the user-supplied
// EngineConfig from the built-in defaults, leaving explicit user values
// untouched (grounded on the teacher's resolveXConfig helpers).
func resolveEngineConfig(user *EngineConfig) (*EngineConfig, error) {
	resolved := &EngineConfig{}
	if user != nil {
		*resolved = *user
	}
	if err := mergo.Merge(resolved, DefaultEngineConfig()); err != nil {
		return nil, err
	}
	return resolved, nil
}

func resolveProviderConfig(user *ProviderConfig) (*ProviderConfig, error) {
	resolved := &ProviderConfig{}
	if user != nil {
		*resolved = *user
	}
	if err := mergo.Merge(resolved, DefaultProviderConfig()); err != nil {
		return nil, err
	}
	return resolved, nil
}

func resolveStoreConfig(user *StoreConfig) (*StoreConfig, error) {
	resolved := &StoreConfig{}
	if user != nil {
		*resolved = *user
	}
	if err := mergo.Merge(resolved, DefaultStoreConfig()); err != nil {
		return nil, err
	}
	return resolved, nil
}

func resolveWorkerConfig(user *WorkerConfig) (*WorkerConfig, error) {
	resolved := &WorkerConfig{}
	if user != nil {
		*resolved = *user
	}
	if err := mergo.Merge(resolved, DefaultWorkerConfig()); err != nil {
		return nil, err
	}
	return resolved, nil
}
