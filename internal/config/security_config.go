package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// RouteSecurityConfig maps named HTTP routes and full gRPC method names to
// their required security level. Staff capability is checked separately by
// the services.
var RouteSecurityConfig = map[string]SecurityLevel{
	"auth.token":    SecurityPublic,
	"health":        SecurityPublic,
	"channels.list": SecurityPublic,
	"ads.search":    SecurityPublic,

	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,
	"/grpc.health.v1.Health/List":  SecurityPublic,

	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      SecurityPublic,
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": SecurityPublic,

	"/adboard.v1.AccountService/GetBalance":    SecurityAccess,
	"/adboard.v1.AccountService/GetSaleStatus": SecurityAccess,
}

// GetSecurityLevel returns the security level for a route, defaulting to access.
func GetSecurityLevel(route string) SecurityLevel {
	if level, ok := RouteSecurityConfig[route]; ok {
		return level
	}
	return SecurityAccess
}
