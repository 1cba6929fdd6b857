// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// ModelVertexShader is the vertex shader for lit, textured meshes.
//
//go:embed model.vert
var ModelVertexShader string

// ModelFragmentShader is the fragment shader for lit, textured meshes.
//
//go:embed model.frag
var ModelFragmentShader string

// DepthVertexShader is the vertex shader for the shadow depth pass.
//
//go:embed depth.vert
var DepthVertexShader string

// DepthFragmentShader is the fragment shader for the shadow depth pass.
//
//go:embed depth.frag
var DepthFragmentShader string

// LinesVertexShader is the vertex shader for debug lines.
//
//go:embed lines.vert
var LinesVertexShader string

// LinesFragmentShader is the fragment shader for debug lines.
//
//go:embed lines.frag
var LinesFragmentShader string
