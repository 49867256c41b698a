package rsk

import (
	"context"
	"errors"
	"testing"
)

func TestOpenLoadsMetadata(t *testing.T) {
	path := newTestRecording(t, ctdChannels())

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if r.DbInfo == nil || r.DbInfo.Version != "2.0.0" || r.DbInfo.Type != "full" {
		t.Errorf("DbInfo = %+v, want version 2.0.0 type full", r.DbInfo)
	}
	if r.Instrument == nil {
		t.Fatal("Instrument not loaded")
	}
	if r.Instrument.SerialID != 204571 || r.Instrument.Model != "RBRconcerto" {
		t.Errorf("Instrument = %+v", r.Instrument)
	}
	if r.Instrument.PartNumber != nil {
		t.Errorf("PartNumber = %v, want nil", *r.Instrument.PartNumber)
	}
	if r.Deployment == nil || r.Deployment.DeploymentID != 1 || r.Deployment.InstrumentID != 1 {
		t.Errorf("Deployment = %+v", r.Deployment)
	}
	if r.Epoch == nil || r.Epoch.StartTime != 946684800000 || r.Epoch.EndTime != 4102358400000 {
		t.Errorf("Epoch = %+v", r.Epoch)
	}
	if r.Schedule == nil || r.Schedule.Gate != "twist activation" {
		t.Errorf("Schedule = %+v", r.Schedule)
	}

	want := ctdChannels()
	if len(r.Channels) != len(want) {
		t.Fatalf("got %d channels, want %d", len(r.Channels), len(want))
	}
	for i, ch := range r.Channels {
		if ch.LongName != want[i].LongName || ch.Units != want[i].Units {
			t.Errorf("channel %d = %s (%s), want %s (%s)",
				i+1, ch.LongName, ch.Units, want[i].LongName, want[i].Units)
		}
	}
}

func TestOpenRejectsNonRecording(t *testing.T) {
	db := openTestDB(t, "not_a_recording.db")
	if _, err := db.Exec(`CREATE TABLE something_else (x INT)`); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	t.Cleanup(func() { removeTestRecording(t, "not_a_recording.db") })

	if _, err := Open("not_a_recording.db"); err == nil {
		t.Fatal("Open should reject a database without a channels table")
	}
}

func TestChannelExists(t *testing.T) {
	path := newTestRecording(t, ctdChannels())
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if !r.ChannelExists(ChannelConductivity) {
		t.Error("conductivity should exist")
	}
	if r.ChannelExists("salinity") {
		t.Error("salinity should not exist")
	}
}

func TestCloseDiscardsState(t *testing.T) {
	path, _ := profilingFixture(t, 1)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := r.ReadData(context.Background()); err != nil {
		t.Fatalf("ReadData failed: %v", err)
	}
	if r.Data == nil {
		t.Fatal("Data not retained after read")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if r.Data != nil || r.ProcessedData != nil {
		t.Error("tables should be discarded on Close")
	}

	if _, err := r.ReadData(context.Background()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadData after Close = %v, want ErrNotOpen", err)
	}
	if _, err := r.GetProfilesIndices(DirectionBoth); !errors.Is(err, ErrNotOpen) {
		t.Errorf("GetProfilesIndices after Close = %v, want ErrNotOpen", err)
	}
	if err := r.ComputeProfiles(0, 0); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ComputeProfiles after Close = %v, want ErrNotOpen", err)
	}
}

func TestCalibrationCatalogLoad(t *testing.T) {
	path := newTestRecording(t, ctdChannels())
	db := openTestDB(t, path)
	insertCalibration(t, db, Calibration{
		CalibrationID: 1,
		ChannelOrder:  3,
		InstrumentID:  1,
		Type:          "factory",
		Equation:      EquationLinear,
		C:             []float64{0.5, 2},
	})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if len(r.Calibrations) != 1 {
		t.Fatalf("got %d calibrations, want 1", len(r.Calibrations))
	}
	cal := r.Calibrations[0]
	if cal.ChannelOrder != 3 || cal.Type != "factory" || cal.Equation != EquationLinear {
		t.Errorf("calibration = %+v", cal)
	}
	if len(cal.C) != 2 || cal.C[0] != 0.5 || cal.C[1] != 2 {
		t.Errorf("coefficients = %v, want [0.5 2]", cal.C)
	}
}
