package config

import "testing"

func TestServerConfig_Environment(t *testing.T) {
	tests := []struct {
		env          string
		wantDev      bool
		wantProdLike bool
	}{
		{EnvDevelopment, true, false},
		{EnvTest, false, false},
		{EnvStaging, false, true},
		{EnvProduction, false, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			c := ServerConfig{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.wantDev {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.wantDev)
			}
			if got := c.IsProductionLike(); got != tt.wantProdLike {
				t.Errorf("IsProductionLike() = %v, want %v", got, tt.wantProdLike)
			}
		})
	}
}
