package awsx

import (
	"context"
	"testing"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/yungbote/passage-migration/internal/platform/config"
)

func apply(t *testing.T, opts []func(*awsconfig.LoadOptions) error) awsconfig.LoadOptions {
	t.Helper()
	var lo awsconfig.LoadOptions
	for _, fn := range opts {
		if err := fn(&lo); err != nil {
			t.Fatalf("load option: %v", err)
		}
	}
	return lo
}

func TestLoadOptionsRegionAndProfile(t *testing.T) {
	lo := apply(t, LoadOptions(config.DynamoConfig{Region: "eu-west-1", Profile: "pni"}, false))
	if lo.Region != "eu-west-1" {
		t.Fatalf("region: want=%q got=%q", "eu-west-1", lo.Region)
	}
	if lo.SharedConfigProfile != "pni" {
		t.Fatalf("profile: want=%q got=%q", "pni", lo.SharedConfigProfile)
	}
	if lo.Credentials != nil {
		t.Fatalf("credentials should come from the default chain")
	}
}

func TestLoadOptionsLocalCredentials(t *testing.T) {
	lo := apply(t, LoadOptions(config.DynamoConfig{Region: "us-east-1"}, true))
	if lo.Credentials == nil {
		t.Fatalf("local endpoint should use static credentials")
	}
	creds, err := lo.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if creds.AccessKeyID != "local" {
		t.Fatalf("access key: want=%q got=%q", "local", creds.AccessKeyID)
	}
}
