/*
 * Copyright 2024 The OpenLEGO Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package script

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/openlego/openlego/api/types"
)

// jsEngine runs a user script on a pool of goja VMs. The script is compiled
// once; every VM in the pool evaluates it at creation so its function
// definitions are available. Execution is bounded by
// config.ScriptMaxExecutionTime through a VM interrupt.
type jsEngine struct {
	vmPool  sync.Pool
	program *goja.Program
	config  types.Config
}

func newJsEngine(config types.Config, jsScript string) (*jsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	engine := &jsEngine{
		program: program,
		config:  config,
	}
	engine.vmPool.New = func() interface{} {
		vm, err := engine.newVm()
		if err != nil {
			return err
		}
		return vm
	}
	// create one VM eagerly so script errors surface during Init
	vm, err := engine.newVm()
	if err != nil {
		return nil, err
	}
	engine.vmPool.Put(vm)
	return engine, nil
}

func (e *jsEngine) newVm() (*goja.Runtime, error) {
	vm := goja.New()
	// custom Golang functions registered through config.Udf
	for name, udf := range e.config.Udf {
		if err := vm.Set(name, udf); err != nil {
			return nil, err
		}
	}
	if len(e.config.Properties.Values()) != 0 {
		if err := vm.Set("global", e.config.Properties.Values()); err != nil {
			return nil, err
		}
	}
	if _, err := vm.RunProgram(e.program); err != nil {
		return nil, err
	}
	return vm, nil
}

// HasFunction reports whether the script defines the named function.
func (e *jsEngine) HasFunction(functionName string) bool {
	vm, err := e.acquire()
	if err != nil {
		return false
	}
	defer e.vmPool.Put(vm)
	_, ok := goja.AssertFunction(vm.Get(functionName))
	return ok
}

// Execute calls the named script function and returns its exported result.
func (e *jsEngine) Execute(functionName string, argument interface{}) (interface{}, error) {
	vm, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer e.vmPool.Put(vm)

	timeout := e.config.ScriptMaxExecutionTime
	if timeout <= 0 {
		timeout = time.Millisecond * 2000
	}
	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt("execution timeout")
	})
	defer timer.Stop()

	fn, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, fmt.Errorf("script function %q not found", functionName)
	}
	result, err := fn(goja.Undefined(), vm.ToValue(argument))
	if err != nil {
		vm.ClearInterrupt()
		return nil, err
	}
	return result.Export(), nil
}

func (e *jsEngine) acquire() (*goja.Runtime, error) {
	switch v := e.vmPool.Get().(type) {
	case *goja.Runtime:
		return v, nil
	case error:
		return nil, v
	default:
		return nil, errors.New("js vm pool exhausted")
	}
}
