// Package identity resolves static service instance metadata once at startup.
//
// Resolution never fails hard: hostname and IP lookups degrade to sentinel
// values, Kubernetes metadata falls back to empty strings. The result is
// shared read-only by every component for the process lifetime.
package identity

import (
	"log/slog"
	"net"
	"os"

	"github.com/google/uuid"
)

const (
	// Sentinels used when live resolution fails.
	UnknownHost = "unknown-host"
	UnknownIP   = "unknown-ip"

	defaultServiceName = "websocket-test-service"

	kubernetesMarker = "/var/run/secrets/kubernetes.io/serviceaccount"
	dockerMarker     = "/.dockerenv"

	// Dialing a UDP socket to a public address forces the OS to pick a
	// route and therefore a local source address. No packet is sent.
	defaultProbeAddr = "8.8.8.8:80"
)

// ServiceIdentity is the immutable instance record computed at process start.
type ServiceIdentity struct {
	InstanceID  string `json:"instance_id"`
	Hostname    string `json:"hostname"`
	ContainerIP string `json:"container_ip"`
	PodName     string `json:"pod_name"`
	NodeName    string `json:"node_name"`
	Namespace   string `json:"namespace"`
	ServiceName string `json:"service_name"`
	Environment string `json:"environment"`
	DisplayName string `json:"display_name"`
}

// Resolver resolves a ServiceIdentity. The zero value is not usable;
// construct with NewResolver. Marker paths and the probe address are
// injectable for tests.
type Resolver struct {
	probeAddr        string
	kubernetesMarker string
	dockerMarker     string
}

type Option func(*Resolver)

// WithProbeAddr overrides the address used for local IP discovery.
func WithProbeAddr(addr string) Option {
	return func(r *Resolver) { r.probeAddr = addr }
}

// WithMarkers overrides the filesystem markers used for environment detection.
func WithMarkers(kubernetes, docker string) Option {
	return func(r *Resolver) {
		r.kubernetesMarker = kubernetes
		r.dockerMarker = docker
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		probeAddr:        defaultProbeAddr,
		kubernetesMarker: kubernetesMarker,
		dockerMarker:     dockerMarker,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the identity. Call once at startup.
func (r *Resolver) Resolve() ServiceIdentity {
	id := ServiceIdentity{
		InstanceID:  uuid.NewString()[:8],
		Hostname:    r.hostname(),
		ContainerIP: r.containerIP(),
		PodName:     podName(),
		NodeName:    os.Getenv("NODE_NAME"),
		Namespace:   os.Getenv("POD_NAMESPACE"),
		ServiceName: serviceName(),
		Environment: r.detectEnvironment(),
	}
	id.DisplayName = displayName(id)
	return id
}

func (r *Resolver) hostname() string {
	host, err := os.Hostname()
	if err != nil {
		slog.Error("Failed to get hostname", "error", err)
		return UnknownHost
	}
	return host
}

func (r *Resolver) containerIP() string {
	conn, err := net.Dial("udp", r.probeAddr)
	if err != nil {
		slog.Error("Failed to get container IP", "error", err)
		return UnknownIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return UnknownIP
	}
	return addr.IP.String()
}

func (r *Resolver) detectEnvironment() string {
	if _, err := os.Stat(r.kubernetesMarker); err == nil {
		return "kubernetes"
	}
	if _, err := os.Stat(r.dockerMarker); err == nil {
		return "docker"
	}
	return "local"
}

func podName() string {
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	return os.Getenv("HOSTNAME")
}

func serviceName() string {
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		return name
	}
	return defaultServiceName
}

func displayName(id ServiceIdentity) string {
	switch {
	case id.PodName != "":
		return id.ServiceName + "-" + id.PodName
	case id.Hostname != UnknownHost:
		return id.ServiceName + "-" + id.Hostname
	default:
		return id.ServiceName + "-" + id.InstanceID
	}
}
