// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"

	"github.com/devblok/windmill/assets"
	vk "github.com/devblok/vulkan"
	"github.com/gogpu/naga"
	log "github.com/sirupsen/logrus"
)

// CompileShader compiles WGSL source into SPIR-V words
func CompileShader(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, errors.New("naga.Compile(): " + err.Error())
	}
	if len(spirv) == 0 || len(spirv)%4 != 0 {
		return nil, fmt.Errorf("naga.Compile(): malformed SPIR-V of %d bytes", len(spirv))
	}
	return SliceUint32(spirv), nil
}

// NewVulkanShader compiles the WGSL source and wraps it into a shader module
func NewVulkanShader(name string, shaderType ShaderType, source []byte, device vk.Device) (Shader, error) {
	code, err := CompileShader(string(source))
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %s", name, shaderType, err.Error())
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}

	var shader vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(device, &smci, nil, &shader)); err != nil {
		return nil, fmt.Errorf("vk.CreateShaderModule(%s.%s): %s", name, shaderType, err.Error())
	}

	log.WithFields(log.Fields{
		"shader": name,
		"type":   shaderType.String(),
		"words":  len(code),
	}).Debug("shader compiled")

	return &VulkanShader{
		shader:     shader,
		shaderType: shaderType,
		name:       name,
		device:     device,
	}, nil
}

// VulkanShader is a Vulkan specific shader
type VulkanShader struct {
	name       string
	shaderType ShaderType
	device     vk.Device
	shader     vk.ShaderModule
}

// Type implements interface
func (v VulkanShader) Type() ShaderType {
	return v.shaderType
}

// EntryPoint implements interface
func (v VulkanShader) EntryPoint() string {
	if v.shaderType == VertexShaderType {
		return "vs_main"
	}
	return "fs_main"
}

// ShaderModule is an accssor to the internal vk.ShaderModule
func (v VulkanShader) ShaderModule() interface{} {
	return v.shader
}

// Name implements interface
func (v VulkanShader) Name() string {
	return v.name
}

// Destroy implements interface
func (v VulkanShader) Destroy() {
	vk.DestroyShaderModule(v.device, v.shader, nil)
}

// loadShaders compiles every shader found in src
func loadShaders(src assets.Source, device vk.Device) (map[string]Shader, error) {
	shaders := make(map[string]Shader)
	for _, f := range shaderFiles(src) {
		source, err := src.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("reading shader %s: %s", f.path, err.Error())
		}
		shader, err := NewVulkanShader(f.name, f.shaderType, source, device)
		if err != nil {
			for _, s := range shaders {
				s.Destroy()
			}
			return nil, err
		}
		shaders[f.name] = shader
	}
	return shaders, nil
}
