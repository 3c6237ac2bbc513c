//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every GLSL shader under assets/shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the binary.
func (Build) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "."), withStream()); err != nil {
		return err
	}
	return nil
}
