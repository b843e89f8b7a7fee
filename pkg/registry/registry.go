// Package registry caches table metadata per model type.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/sited-io/websites/pkg/schema"
)

// Registry is a thread-safe registry for table metadata.
type Registry struct {
	mu     sync.RWMutex
	parser *schema.Parser
	tables map[reflect.Type]*schema.TableMetadata
	names  map[string]*schema.TableMetadata
}

// NewRegistry creates a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		parser: schema.NewParser(),
		tables: make(map[reflect.Type]*schema.TableMetadata),
		names:  make(map[string]*schema.TableMetadata),
	}
}

func structType(model any) (reflect.Type, error) {
	modelType := reflect.TypeOf(model)
	if modelType == nil {
		return nil, fmt.Errorf("model must be a struct, got nil")
	}
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	return modelType, nil
}

// Register registers a model type and extracts its metadata.
func (r *Registry) Register(model any) error {
	_, err := r.GetOrRegister(model)
	return err
}

// GetOrRegister retrieves TableMetadata or registers it if not found.
func (r *Registry) GetOrRegister(model any) (*schema.TableMetadata, error) {
	modelType, err := structType(model)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	table, err = r.parser.Parse(modelType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", modelType.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables[modelType] = table
	r.names[table.Name] = table

	return table, nil
}

// Get retrieves TableMetadata by Go type.
func (r *Registry) Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model type %s not registered", modelType.Name())
	}

	return table, nil
}

// GetByName retrieves TableMetadata by table name.
func (r *Registry) GetByName(tableName string) (*schema.TableMetadata, error) {
	r.mu.RLock()
	table, ok := r.names[tableName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("table %s not registered", tableName)
	}

	return table, nil
}

// Names returns the registered table names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a model type is registered.
func (r *Registry) Has(modelType reflect.Type) bool {
	_, err := r.Get(modelType)
	return err == nil
}

var globalRegistry = NewRegistry()

// Register registers a model in the global registry.
func Register(model any) error {
	return globalRegistry.Register(model)
}

// GetOrRegister retrieves or registers a model in the global registry.
func GetOrRegister(model any) (*schema.TableMetadata, error) {
	return globalRegistry.GetOrRegister(model)
}

// GetByName retrieves TableMetadata by name from the global registry.
func GetByName(tableName string) (*schema.TableMetadata, error) {
	return globalRegistry.GetByName(tableName)
}

// Names returns the table names in the global registry.
func Names() []string {
	return globalRegistry.Names()
}
