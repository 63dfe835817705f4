package metadeploy

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	d, err := New(&fakeConn{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if d.InitialWait() != time.Second {
		t.Errorf("InitialWait() = %v, want 1s", d.InitialWait())
	}
	if d.MaxPolls() != 50 {
		t.Errorf("MaxPolls() = %d, want 50", d.MaxPolls())
	}

	opts := d.DeployOptions()
	if opts.PerformRetrieve {
		t.Error("PerformRetrieve = true, want false")
	}
	if !opts.RollbackOnError {
		t.Error("RollbackOnError = false, want true")
	}
	if _, ok := d.recorder.(*LogRecorder); !ok {
		t.Errorf("default recorder = %T, want *LogRecorder", d.recorder)
	}
}

func TestNew_NilConnection(t *testing.T) {
	_, err := New(nil)
	if err == nil {
		t.Fatal("New(nil) expected error, got nil")
	}
	if !strings.Contains(err.Error(), "connection is required") {
		t.Errorf("error = %v, want 'connection is required'", err)
	}
}

func TestNew_Options(t *testing.T) {
	opts := DefaultDeployOptions()
	opts.CheckOnly = true
	opts.TestLevel = TestLevelRunLocalTests

	d, err := New(&fakeConn{},
		WithInitialWait(250*time.Millisecond),
		WithMaxPolls(10),
		WithDeployOptions(opts),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if d.InitialWait() != 250*time.Millisecond {
		t.Errorf("InitialWait() = %v, want 250ms", d.InitialWait())
	}
	if d.MaxPolls() != 10 {
		t.Errorf("MaxPolls() = %d, want 10", d.MaxPolls())
	}
	got := d.DeployOptions()
	if !got.CheckOnly || got.TestLevel != TestLevelRunLocalTests {
		t.Errorf("DeployOptions() = %+v", got)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr string
	}{
		{"nil logger", WithLogger(nil), "logger cannot be nil"},
		{"nil recorder", WithRecorder(nil), "recorder cannot be nil"},
		{"zero wait", WithInitialWait(0), "initial wait must be positive"},
		{"negative wait", WithInitialWait(-time.Second), "initial wait must be positive"},
		{"zero polls", WithMaxPolls(0), "max polls must be positive"},
		{"nil sleeper", WithSleeper(nil), "sleeper cannot be nil"},
		{
			"unknown test level",
			WithDeployOptions(DeployOptions{TestLevel: "RunSomeTests"}),
			"unknown test level",
		},
		{
			"specified tests without names",
			WithDeployOptions(DeployOptions{TestLevel: TestLevelRunSpecifiedTests}),
			"requires at least one test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&fakeConn{}, tt.opt)
			if err == nil {
				t.Fatal("New() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWithPollCallback_NilIgnored(t *testing.T) {
	d, err := New(&fakeConn{}, WithPollCallback(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(d.pollCallbacks) != 0 {
		t.Errorf("len(pollCallbacks) = %d, want 0", len(d.pollCallbacks))
	}
}

func TestDeployOptions_ReturnsCopy(t *testing.T) {
	opts := DefaultDeployOptions()
	opts.TestLevel = TestLevelRunSpecifiedTests
	opts.RunTests = []string{"FooTest"}

	d, err := New(&fakeConn{}, WithDeployOptions(opts))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	opts.RunTests[0] = "Mutated"
	got := d.DeployOptions()
	got.RunTests[0] = "AlsoMutated"

	if d.DeployOptions().RunTests[0] != "FooTest" {
		t.Errorf("RunTests[0] = %q, want FooTest", d.DeployOptions().RunTests[0])
	}
}

func TestTestLevel_Valid(t *testing.T) {
	for _, l := range []TestLevel{
		TestLevelDefault, TestLevelNoTestRun, TestLevelRunSpecifiedTests,
		TestLevelRunLocalTests, TestLevelRunAllTestsInOrg,
	} {
		if !l.Valid() {
			t.Errorf("%q.Valid() = false, want true", l)
		}
	}
	if TestLevel("RunEverything").Valid() {
		t.Error(`"RunEverything".Valid() = true, want false`)
	}
}
