package seed

import (
	"fmt"
	"reflect"
)

type Hospital struct {
	HospitalID         int64   `parquet:"HospitalID"`
	Name               string  `parquet:"Name"`
	Location           string  `parquet:"Location"`
	TotalBeds          int64   `parquet:"TotalBeds"`
	OccupiedBeds       int64   `parquet:"OccupiedBeds"`
	Departments        string  `parquet:"Departments"`
	DoctorsCount       int64   `parquet:"DoctorsCount"`
	Rating             float64 `parquet:"Rating"`
	EmergencyAvailable bool    `parquet:"EmergencyAvailable"`
	Ambulances         int64   `parquet:"Ambulances"`
	Contact            string  `parquet:"Contact"`
	Email              string  `parquet:"Email"`
	Director           string  `parquet:"Director"`
	EstablishedYear    int64   `parquet:"EstablishedYear"`
	Revenue            float64 `parquet:"Revenue"`
	City               string  `parquet:"City"`
	State              string  `parquet:"State"`
	PostalCode         string  `parquet:"PostalCode"`
	Country            string  `parquet:"Country"`
	Website            string  `parquet:"Website"`
}

type Doctor struct {
	DoctorID        int64   `parquet:"DoctorID"`
	Name            string  `parquet:"Name"`
	Specialization  string  `parquet:"Specialization"`
	ExperienceYears int64   `parquet:"ExperienceYears"`
	PatientsTreated int64   `parquet:"PatientsTreated"`
	AvailableDays   string  `parquet:"AvailableDays"`
	Rating          float64 `parquet:"Rating"`
	Salary          float64 `parquet:"Salary"`
	PhoneNumber     string  `parquet:"PhoneNumber"`
	Email           string  `parquet:"Email"`
	HospitalID      int64   `parquet:"HospitalID"`
	ResearchPapers  int64   `parquet:"ResearchPapers"`
	Certifications  string  `parquet:"Certifications"`
	Awards          string  `parquet:"Awards"`
	ShiftTiming     string  `parquet:"ShiftTiming"`
	Country         string  `parquet:"Country"`
	State           string  `parquet:"State"`
	City            string  `parquet:"City"`
	PostalCode      string  `parquet:"PostalCode"`
	LicenseNumber   string  `parquet:"LicenseNumber"`
}

type Patient struct {
	PatientID        int64   `parquet:"PatientID"`
	Age              int64   `parquet:"Age"`
	Height           float64 `parquet:"Height"`
	Weight           float64 `parquet:"Weight"`
	BloodPressure    string  `parquet:"BloodPressure"`
	HeartRate        int64   `parquet:"HeartRate"`
	Cholesterol      int64   `parquet:"Cholesterol"`
	BloodSugar       int64   `parquet:"BloodSugar"`
	Temperature      float64 `parquet:"Temperature"`
	OxygenSaturation int64   `parquet:"OxygenSaturation"`
	VisitDate        string  `parquet:"VisitDate"`
	DiagnosisCode    string  `parquet:"DiagnosisCode"`
	TreatmentCode    string  `parquet:"TreatmentCode"`
	InsuranceNumber  string  `parquet:"InsuranceNumber"`
	DoctorID         int64   `parquet:"DoctorID"`
	HospitalID       int64   `parquet:"HospitalID"`
	Allergies        string  `parquet:"Allergies"`
	Medications      string  `parquet:"Medications"`
	Symptoms         string  `parquet:"Symptoms"`
	Notes            string  `parquet:"Notes"`
}

type Dataset struct {
	Hospitals []Hospital
	Doctors   []Doctor
	Patients  []Patient
}

// Table is one generated table in column order, ready to be written to any
// of the supported databases.
type Table struct {
	Name    string
	Columns []TableColumn
	Rows    [][]any
}

type TableColumn struct {
	Name string
	Type string
}

func (d Dataset) Tables() ([]Table, error) {
	hospitals, err := tableOf("Hospitals", d.Hospitals)
	if err != nil {
		return nil, err
	}
	doctors, err := tableOf("Doctors", d.Doctors)
	if err != nil {
		return nil, err
	}
	patients, err := tableOf("Patients", d.Patients)
	if err != nil {
		return nil, err
	}
	return []Table{hospitals, doctors, patients}, nil
}

func tableOf[T any](name string, rows []T) (Table, error) {
	rowType := reflect.TypeFor[T]()
	columns := make([]TableColumn, 0, rowType.NumField())
	for i := 0; i < rowType.NumField(); i++ {
		field := rowType.Field(i)
		sqlType, err := sqlTypeOf(field.Type.Kind())
		if err != nil {
			return Table{}, fmt.Errorf("%s.%s: %w", name, field.Name, err)
		}
		columns = append(columns, TableColumn{Name: field.Tag.Get("parquet"), Type: sqlType})
	}

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		v := reflect.ValueOf(row)
		record := make([]any, v.NumField())
		for i := range record {
			record[i] = v.Field(i).Interface()
		}
		values = append(values, record)
	}
	return Table{Name: name, Columns: columns, Rows: values}, nil
}

func sqlTypeOf(kind reflect.Kind) (string, error) {
	switch kind {
	case reflect.Int64:
		return "INTEGER", nil
	case reflect.Float64:
		return "DOUBLE PRECISION", nil
	case reflect.Bool:
		return "BOOLEAN", nil
	case reflect.String:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("unsupported column kind %s", kind)
	}
}
