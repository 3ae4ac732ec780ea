package adapter

import (
	"fmt"
	"slices"
	"sync"

	"DanmakuAnalysis/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// Registry 推理后端名 -> 工厂函数。后端包在 init 中登记，main 按配置取用
type Registry struct {
	mu        sync.RWMutex
	factories map[string]interfaces.BackendFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]interfaces.BackendFactory)}
}

// Register 同名重复登记以后者为准
func (r *Registry) Register(name string, factory interfaces.BackendFactory) {
	if factory == nil {
		panic(fmt.Sprintf("推理后端%s的工厂函数不能为nil", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		logrus.WithField("provider", name).Warn("推理后端重复注册，覆盖旧的工厂函数")
	}
	r.factories[name] = factory
}

func (r *Registry) Lookup(name string) (interfaces.BackendFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names 已登记的后端名，字典序
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

var backends = NewRegistry()

// Register 登记到进程级注册表，供 httpmodel / openaimodel 的 init 调用
func Register(name string, factory interfaces.BackendFactory) { backends.Register(name, factory) }

func GetFactory(name string) (interfaces.BackendFactory, bool) { return backends.Lookup(name) }

func ListFactories() []string { return backends.Names() }
