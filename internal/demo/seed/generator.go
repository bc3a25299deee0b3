package seed

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

type Counts struct {
	Hospitals int
	Doctors   int
	Patients  int
}

type location struct {
	City       string
	State      string
	PostalCode string
	Country    string
}

var (
	locations = []location{
		{City: "Boston", State: "MA", PostalCode: "02115", Country: "USA"},
		{City: "Seattle", State: "WA", PostalCode: "98104", Country: "USA"},
		{City: "Austin", State: "TX", PostalCode: "78701", Country: "USA"},
		{City: "Denver", State: "CO", PostalCode: "80202", Country: "USA"},
		{City: "Chicago", State: "IL", PostalCode: "60611", Country: "USA"},
		{City: "Toronto", State: "ON", PostalCode: "M5G 2C4", Country: "Canada"},
		{City: "Vancouver", State: "BC", PostalCode: "V5Z 1M9", Country: "Canada"},
	}
	hospitalSuffixes = []string{"General Hospital", "Medical Center", "Community Hospital", "University Hospital", "Regional Clinic"}
	departments      = []string{"Cardiology", "Neurology", "Oncology", "Pediatrics", "Orthopedics", "Emergency", "Radiology", "Dermatology"}
	firstNames       = []string{"Alex", "Maria", "James", "Priya", "Chen", "Fatima", "Lukas", "Sofia", "David", "Amara", "Noah", "Elena"}
	lastNames        = []string{"Smith", "Garcia", "Nguyen", "Patel", "Kim", "Okafor", "Schmidt", "Rossi", "Cohen", "Silva", "Brown", "Novak"}
	weekdays         = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	certifications   = []string{"ABIM", "ACLS", "BLS", "PALS", "FACC", "FACS"}
	awards           = []string{"None", "Physician of the Year", "Teaching Excellence", "Research Award", "Patient Choice Award"}
	shifts           = []string{"Morning", "Evening", "Night", "Rotating"}
	diagnosisCodes   = []string{"I10", "E11.9", "J45.909", "M54.5", "F41.1", "K21.9", "I25.10", "J06.9"}
	treatmentCodes   = []string{"T100", "T210", "T305", "T410", "T520", "T615"}
	allergies        = []string{"None", "Penicillin", "Peanuts", "Latex", "Pollen", "Shellfish"}
	medications      = []string{"None", "Lisinopril", "Metformin", "Albuterol", "Atorvastatin", "Omeprazole", "Sertraline"}
	symptoms         = []string{"Chest pain", "Headache", "Shortness of breath", "Back pain", "Fatigue", "Cough", "Dizziness"}
	notes            = []string{"Follow-up in two weeks", "Stable condition", "Referred to specialist", "Lab results pending", "Discharged"}
)

// Generator produces a demo hospital dataset. The same seed always yields the
// same dataset.
type Generator struct {
	rnd   *rand.Rand
	epoch time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd:   rand.New(rand.NewSource(seed)),
		epoch: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (g *Generator) Generate(counts Counts) (Dataset, error) {
	if counts.Hospitals <= 0 || counts.Doctors <= 0 || counts.Patients < 0 {
		return Dataset{}, fmt.Errorf("invalid counts: hospitals=%d doctors=%d patients=%d", counts.Hospitals, counts.Doctors, counts.Patients)
	}

	ds := Dataset{
		Hospitals: make([]Hospital, 0, counts.Hospitals),
		Doctors:   make([]Doctor, 0, counts.Doctors),
		Patients:  make([]Patient, 0, counts.Patients),
	}
	for i := 1; i <= counts.Hospitals; i++ {
		ds.Hospitals = append(ds.Hospitals, g.hospital(int64(i)))
	}
	for i := 1; i <= counts.Doctors; i++ {
		hospital := &ds.Hospitals[g.rnd.Intn(len(ds.Hospitals))]
		hospital.DoctorsCount++
		ds.Doctors = append(ds.Doctors, g.doctor(int64(i), *hospital))
	}
	for i := 1; i <= counts.Patients; i++ {
		doctor := &ds.Doctors[g.rnd.Intn(len(ds.Doctors))]
		doctor.PatientsTreated++
		ds.Patients = append(ds.Patients, g.patient(int64(i), *doctor))
	}
	return ds, nil
}

func (g *Generator) hospital(id int64) Hospital {
	loc := locations[g.rnd.Intn(len(locations))]
	name := fmt.Sprintf("%s %s", loc.City, pickOne(g.rnd, hospitalSuffixes))
	slug := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	totalBeds := int64(50 + g.rnd.Intn(451))
	return Hospital{
		HospitalID:         id,
		Name:               name,
		Location:           fmt.Sprintf("%d %s Ave, %s", 100+g.rnd.Intn(900), pickOne(g.rnd, lastNames), loc.City),
		TotalBeds:          totalBeds,
		OccupiedBeds:       int64(g.rnd.Int63n(totalBeds + 1)),
		Departments:        strings.Join(pickSome(g.rnd, departments, 3), ", "),
		Rating:             round1(2.5 + g.rnd.Float64()*2.5),
		EmergencyAvailable: g.rnd.Intn(10) < 8,
		Ambulances:         int64(g.rnd.Intn(21)),
		Contact:            g.phone(),
		Email:              "info@" + slug + ".org",
		Director:           g.personName(),
		EstablishedYear:    int64(1900 + g.rnd.Intn(121)),
		Revenue:            round2(5e6 + g.rnd.Float64()*495e6),
		City:               loc.City,
		State:              loc.State,
		PostalCode:         loc.PostalCode,
		Country:            loc.Country,
		Website:            "https://www." + slug + ".org",
	}
}

func (g *Generator) doctor(id int64, hospital Hospital) Doctor {
	name := g.personName()
	return Doctor{
		DoctorID:        id,
		Name:            "Dr. " + name,
		Specialization:  pickOne(g.rnd, departments),
		ExperienceYears: int64(1 + g.rnd.Intn(40)),
		AvailableDays:   strings.Join(pickSome(g.rnd, weekdays, 3), ", "),
		Rating:          round1(3 + g.rnd.Float64()*2),
		Salary:          round2(120000 + g.rnd.Float64()*280000),
		PhoneNumber:     g.phone(),
		Email:           strings.ToLower(strings.ReplaceAll(name, " ", ".")) + fmt.Sprintf("%d@hospital.example", id),
		HospitalID:      hospital.HospitalID,
		ResearchPapers:  int64(g.rnd.Intn(60)),
		Certifications:  strings.Join(pickSome(g.rnd, certifications, 2), ", "),
		Awards:          pickOne(g.rnd, awards),
		ShiftTiming:     pickOne(g.rnd, shifts),
		Country:         hospital.Country,
		State:           hospital.State,
		City:            hospital.City,
		PostalCode:      hospital.PostalCode,
		LicenseNumber:   fmt.Sprintf("LIC-%s-%06d", hospital.State, g.rnd.Intn(1000000)),
	}
}

func (g *Generator) patient(id int64, doctor Doctor) Patient {
	height := round1(150 + g.rnd.Float64()*45)
	bmi := 18 + g.rnd.Float64()*17
	return Patient{
		PatientID:        id,
		Age:              int64(1 + g.rnd.Intn(95)),
		Height:           height,
		Weight:           round1(bmi * math.Pow(height/100, 2)),
		BloodPressure:    fmt.Sprintf("%d/%d", 100+g.rnd.Intn(60), 60+g.rnd.Intn(35)),
		HeartRate:        int64(55 + g.rnd.Intn(50)),
		Cholesterol:      int64(140 + g.rnd.Intn(140)),
		BloodSugar:       int64(70 + g.rnd.Intn(130)),
		Temperature:      round1(36 + g.rnd.Float64()*3),
		OxygenSaturation: int64(90 + g.rnd.Intn(11)),
		VisitDate:        g.epoch.AddDate(0, 0, g.rnd.Intn(730)).Format(time.DateOnly),
		DiagnosisCode:    pickOne(g.rnd, diagnosisCodes),
		TreatmentCode:    pickOne(g.rnd, treatmentCodes),
		InsuranceNumber:  fmt.Sprintf("INS-%08d", g.rnd.Intn(100000000)),
		DoctorID:         doctor.DoctorID,
		HospitalID:       doctor.HospitalID,
		Allergies:        pickOne(g.rnd, allergies),
		Medications:      pickOne(g.rnd, medications),
		Symptoms:         pickOne(g.rnd, symptoms),
		Notes:            pickOne(g.rnd, notes),
	}
}

func (g *Generator) personName() string {
	return pickOne(g.rnd, firstNames) + " " + pickOne(g.rnd, lastNames)
}

func (g *Generator) phone() string {
	return fmt.Sprintf("+1-%03d-%03d-%04d", 200+g.rnd.Intn(800), g.rnd.Intn(1000), g.rnd.Intn(10000))
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}

func pickSome(r *rand.Rand, values []string, n int) []string {
	if n > len(values) {
		n = len(values)
	}
	picked := make([]string, 0, n)
	for _, idx := range r.Perm(len(values))[:n] {
		picked = append(picked, values[idx])
	}
	return picked
}
