package glgfx

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/tmaxted/oriel/geometry"
)

var basicVertexShader = `#version 330 core
layout(location = 0) in vec3 position;

uniform mat4 transform;

void main() {
	gl_Position = transform * vec4(position, 1.0);
}` + "\x00"

var basicFragmentShader = `#version 330 core
out vec4 fragColor;

uniform vec4 color;

void main() {
	fragColor = color;
}` + "\x00"

// BasicProgram is a minimal untextured program for drawing loaded
// meshes in the demo viewer.
type BasicProgram struct {
	id           uint32
	transformLoc int32
	colorLoc     int32
}

// NewBasicProgram compiles and links the basic mesh program.
func NewBasicProgram() (*BasicProgram, error) {
	id, err := newProgram(basicVertexShader, basicFragmentShader)
	if err != nil {
		return nil, err
	}
	p := &BasicProgram{id: id}
	p.transformLoc = gl.GetUniformLocation(id, gl.Str("transform\x00"))
	p.colorLoc = gl.GetUniformLocation(id, gl.Str("color\x00"))
	return p, nil
}

// Use binds the program with the given transform and color.
func (p *BasicProgram) Use(transform *[16]float32, color [4]float32) {
	gl.UseProgram(p.id)
	if p.transformLoc != -1 {
		gl.UniformMatrix4fv(p.transformLoc, 1, false, &transform[0])
	}
	if p.colorLoc != -1 {
		gl.Uniform4f(p.colorLoc, color[0], color[1], color[2], color[3])
	}
}

func (p *BasicProgram) Destroy() {
	gl.DeleteProgram(p.id)
}

// FitTransform returns a column-major matrix that centers the extents in
// clip space and scales them to fit.
func FitTransform(e geometry.Extents) [16]float32 {
	c := e.Center()
	r := e.Radius()
	if r == 0 {
		r = 1
	}
	s := 1 / r
	return [16]float32{
		s, 0, 0, 0,
		0, s, 0, 0,
		0, 0, s, 0,
		-c[0] * s, -c[1] * s, -c[2] * s, 1,
	}
}

// SpinTransform fits the extents like FitTransform and rotates them
// around the Y axis by angle radians.
func SpinTransform(e geometry.Extents, angle float32) [16]float32 {
	c := e.Center()
	r := e.Radius()
	if r == 0 {
		r = 1
	}
	s := 1 / r
	sin, cos := math32.Sin(angle), math32.Cos(angle)
	return [16]float32{
		s * cos, 0, s * -sin, 0,
		0, s, 0, 0,
		s * sin, 0, s * cos, 0,
		-(c[0]*cos + c[2]*sin) * s, -c[1] * s, -(-c[0]*sin + c[2]*cos) * s, 1,
	}
}

// Clear sets the viewport and clears the color and depth buffers.
func Clear(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(0.08, 0.09, 0.11, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("failed to link program: %v", log)
	}

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}
