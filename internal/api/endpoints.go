package api

// Build daemon endpoints
const (
	BuilderService = "erlbuild.v1.Builder"

	BuilderBuild = "/erlbuild.v1.Builder/Build"
	BuilderClean = "/erlbuild.v1.Builder/Clean"
)

// Authentication service endpoints
const (
	AuthService = "erlbuild.v1.Auth"

	AuthToken         = "/erlbuild.v1.Auth/Token"
	AuthValidateToken = "/erlbuild.v1.Auth/ValidateToken"
)

// Compile backend endpoints, served by remote compiler nodes
const (
	BackendService = "erlbuild.backend.v1.Backend"

	BackendInfo              = "/erlbuild.backend.v1.Backend/Info"
	BackendAddProjectPath    = "/erlbuild.backend.v1.Backend/AddProjectPath"
	BackendRemoveProjectPath = "/erlbuild.backend.v1.Backend/RemoveProjectPath"
	BackendCompileSource     = "/erlbuild.backend.v1.Backend/CompileSource"
	BackendCompileGrammar    = "/erlbuild.backend.v1.Backend/CompileGrammar"
	BackendCompileAppSrc     = "/erlbuild.backend.v1.Backend/CompileAppSrc"
)

// PublicEndpoints defines endpoints that don't require authentication
var PublicEndpoints = map[string]bool{
	AuthToken:         true,
	AuthValidateToken: true,
	BackendInfo:       true,
}
