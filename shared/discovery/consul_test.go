package discovery

import "testing"

func TestHealthTarget(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
		want string
	}{
		{name: "wildcard host", reg: Registration{Host: "10.0.0.5", GRPCHealthAddr: ":9090"}, want: "10.0.0.5:9090"},
		{name: "any ipv4", reg: Registration{Host: "account", GRPCHealthAddr: "0.0.0.0:9090"}, want: "account:9090"},
		{name: "explicit host", reg: Registration{Host: "10.0.0.5", GRPCHealthAddr: "127.0.0.1:9090"}, want: "127.0.0.1:9090"},
		{name: "unparseable", reg: Registration{Host: "10.0.0.5", GRPCHealthAddr: "health"}, want: "health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := healthTarget(tt.reg); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
