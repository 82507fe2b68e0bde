package configs

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	type args struct {
		configPath string
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{
			name: "should load the configuration file without errors",
			args: args{
				configPath: "./../../test/testdata/config_valid.json",
			},
			wantErr: false,
		},
		{
			name: "should not load the configuration due to wrong path",
			args: args{
				configPath: "./../../test/testdata/invalid.json",
			},
			wantErr: true,
		},
		{
			name: "should not load the configuration due to invalid port",
			args: args{
				configPath: "./../../test/testdata/config_invalid_port.json",
			},
			wantErr: true,
		},
		{
			name: "should not load the configuration due to invalid private file",
			args: args{
				configPath: "./../../test/testdata/config_invalid_private_key.json",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args.configPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
		})
	}
}

func TestLoadDefaultsAndEnvironment(t *testing.T) {
	t.Setenv("HOSPITAL_DATABASE_DSN", "postgres://env/hospital")
	config := MustLoad("./../../test/testdata/config_valid.json")
	if got := config.DatabaseDSN(); got != "postgres://env/hospital" {
		t.Errorf("DatabaseDSN() = %s, want the environment override", got)
	}
	if got := config.DatabaseTimeout(); got != 5*time.Second {
		t.Errorf("DatabaseTimeout() = %v, want the default of 5s", got)
	}
	if got := config.DatabaseDriver(); got != "postgres" {
		t.Errorf("DatabaseDriver() = %s, want postgres", got)
	}
}
