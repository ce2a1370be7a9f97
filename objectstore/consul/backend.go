package consul

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/objectstore"
)

// Consul KV has a default limit of 512KB per value
const maxValueSize = 512 * 1024

// ConsulBackend stores values in the Consul KV store under
// <prefix>/<namespace>/<key>.
type ConsulBackend struct {
	client *api.Client
	kv     *api.KV

	// Configuration
	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Prefix for all keys in Consul KV (default: "docfs")
	Prefix string
}

// NewConsulBackend creates a new Consul-backed object store backend
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = "docfs"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	// Fail early when the agent is unreachable
	if _, _, err := cb.kv.Keys(cb.config.Prefix+"/", "/", (&api.QueryOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to reach consul agent at '%s': %w", cb.config.Address, err)
	}
	return nil
}

// Close is part of the lifecycle behaviour and releases all resources.
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *objectstore.BackendCapabilities {
	return &objectstore.BackendCapabilities{
		Capabilities: []objectstore.BackendCapability{
			objectstore.CapabilityPersistent,
		},
		MaxValueSize: maxValueSize,
	}
}

// buildPrefix constructs the Consul KV prefix that holds a namespace
func (cb *ConsulBackend) buildPrefix(namespace string) string {
	return cb.config.Prefix + "/" + namespace + "/"
}

// buildKey constructs the full Consul KV key from namespace and key
func (cb *ConsulBackend) buildKey(namespace, key string) string {
	return cb.buildPrefix(namespace) + strings.TrimPrefix(key, "/")
}

func (cb *ConsulBackend) GetObject(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	pair, _, err := cb.kv.Get(cb.buildKey(namespace, key), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get '%s': %w", key, err)
	}
	if pair == nil {
		return nil, false, nil
	}

	if pair.Value == nil {
		return []byte{}, true, nil
	}
	return pair.Value, true, nil
}

func (cb *ConsulBackend) GetObjects(ctx context.Context, namespace string, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, ok, err := cb.GetObject(ctx, namespace, key)
		if err != nil {
			return nil, err
		}
		if ok {
			result[key] = value
		}
	}
	return result, nil
}

func (cb *ConsulBackend) SetObject(ctx context.Context, namespace, key string, value []byte) error {
	if len(value) > maxValueSize {
		return fmt.Errorf("%w: '%s' has %d bytes", data.ErrValueTooLarge, key, len(value))
	}

	pair := &api.KVPair{
		Key:   cb.buildKey(namespace, key),
		Value: value,
	}

	if _, err := cb.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to put '%s': %w", key, err)
	}
	return nil
}

func (cb *ConsulBackend) SetObjects(ctx context.Context, namespace string, values map[string][]byte) error {
	for key, value := range values {
		if err := cb.SetObject(ctx, namespace, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (cb *ConsulBackend) DeleteObjects(ctx context.Context, namespace string, keys ...string) error {
	opts := (&api.WriteOptions{}).WithContext(ctx)
	for _, key := range keys {
		if _, err := cb.kv.Delete(cb.buildKey(namespace, key), opts); err != nil {
			return fmt.Errorf("failed to delete '%s': %w", key, err)
		}
	}
	return nil
}

func (cb *ConsulBackend) ClearNamespace(ctx context.Context, namespace string) error {
	if _, err := cb.kv.DeleteTree(cb.buildPrefix(namespace), (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to clear namespace '%s': %w", namespace, err)
	}
	return nil
}
