package storage

import "testing"

func TestBuildDatasetPath(t *testing.T) {
	key, err := BuildDatasetPath("datasets/demo", "Patients")
	if err != nil {
		t.Fatalf("BuildDatasetPath() error = %v", err)
	}
	want := "datasets/demo/Patients/part-00000.parquet"
	if key != want {
		t.Fatalf("BuildDatasetPath() = %q, want %q", key, want)
	}
}

func TestBuildDatasetPathWithoutPrefix(t *testing.T) {
	key, err := BuildDatasetPath("", "Doctors")
	if err != nil {
		t.Fatalf("BuildDatasetPath() error = %v", err)
	}
	if key != "Doctors/part-00000.parquet" {
		t.Fatalf("BuildDatasetPath() = %q", key)
	}
}

func TestBuildPathRejectsInvalidComponent(t *testing.T) {
	if _, err := BuildDatasetPath("../oops", "Patients"); err == nil {
		t.Fatal("expected invalid prefix error")
	}
	if _, err := BuildDatasetPath("datasets", "bad/table"); err == nil {
		t.Fatal("expected invalid table error")
	}
}

func TestDatasetTableFromKey(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		table  string
		ok     bool
	}{
		{prefix: "datasets", key: "datasets/Patients/part-00000.parquet", table: "Patients", ok: true},
		{prefix: "/datasets/", key: "datasets/Hospitals/part-00001.parquet", table: "Hospitals", ok: true},
		{prefix: "", key: "Doctors/part-00000.parquet", table: "Doctors", ok: true},
		{prefix: "datasets", key: "other/Patients/part-00000.parquet"},
		{prefix: "datasets", key: "datasets/Patients/nested/part-00000.parquet"},
		{prefix: "datasets", key: "datasets/Patients/readme.txt"},
	}
	for _, tt := range tests {
		table, ok := DatasetTableFromKey(tt.prefix, tt.key)
		if ok != tt.ok || table != tt.table {
			t.Fatalf("DatasetTableFromKey(%q, %q) = %q/%v, want %q/%v", tt.prefix, tt.key, table, ok, tt.table, tt.ok)
		}
	}
}
