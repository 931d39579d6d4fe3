package frontdesk

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Repository is the front-desk record store.
type Repository interface {
	CreateDoctor(ctx context.Context, req *CreateDoctorRequest) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	FindDoctors(ctx context.Context, name string) ([]Doctor, error)

	CreatePatient(ctx context.Context, req *CreatePatientRequest) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	FindPatients(ctx context.Context, name string) ([]Patient, error)
	DeletePatient(ctx context.Context, id int) error

	CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]AppointmentDetail, error)
	DeleteAppointment(ctx context.Context, id int) error

	ListInventory(ctx context.Context) ([]InventoryItem, error)
	GetInventoryItem(ctx context.Context, id int64) (*InventoryItem, error)
	CreateInventoryItem(ctx context.Context, req *CreateInventoryRequest) (*InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, id int64, req *UpdateInventoryRequest) (*InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id int64) error
}

// InMemoryRepository keeps everything in process memory. Used when no
// database is configured and in tests.
type InMemoryRepository struct {
	mu           sync.RWMutex
	now          func() time.Time
	doctors      map[int]Doctor
	patients     map[int]Patient
	appointments map[int]Appointment
	inventory    map[int64]InventoryItem
	nextID       int
	nextItemID   int64
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		now:          time.Now,
		doctors:      make(map[int]Doctor),
		patients:     make(map[int]Patient),
		appointments: make(map[int]Appointment),
		inventory:    make(map[int64]InventoryItem),
	}
}

func (r *InMemoryRepository) id() int {
	r.nextID++
	return r.nextID
}

func (r *InMemoryRepository) CreateDoctor(ctx context.Context, req *CreateDoctorRequest) (*Doctor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d := Doctor{ID: r.id(), Name: strings.TrimSpace(req.Name), Specialization: req.Specialization, Position: req.Position}
	r.doctors[d.ID] = d
	return &d, nil
}

func (r *InMemoryRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return r.FindDoctors(ctx, "")
}

// FindDoctors matches a case-insensitive substring of the name.
func (r *InMemoryRepository) FindDoctors(ctx context.Context, name string) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Doctor{}
	for _, d := range r.doctors {
		if containsFold(d.Name, name) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) CreatePatient(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Patient{ID: r.id(), Name: strings.TrimSpace(req.Name), DOB: req.DOB, Contact: req.Contact}
	r.patients[p.ID] = p
	return &p, nil
}

// ListPatients returns patients newest first.
func (r *InMemoryRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	return r.FindPatients(ctx, "")
}

func (r *InMemoryRepository) FindPatients(ctx context.Context, name string) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Patient{}
	for _, p := range r.patients {
		if containsFold(p.Name, name) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// DeletePatient removes the patient and their appointments.
func (r *InMemoryRepository) DeletePatient(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[id]; !ok {
		return ErrNotFound
	}
	delete(r.patients, id)
	for apptID, a := range r.appointments {
		if a.PatientID == id {
			delete(r.appointments, apptID)
		}
	}
	return nil
}

func (r *InMemoryRepository) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	at, err := req.Validate()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[req.PatientID]; !ok {
		return nil, fmt.Errorf("frontdesk: patient %d: %w", req.PatientID, ErrNotFound)
	}
	if _, ok := r.doctors[req.DoctorID]; !ok {
		return nil, fmt.Errorf("frontdesk: doctor %d: %w", req.DoctorID, ErrNotFound)
	}
	for _, existing := range r.appointments {
		if existing.DoctorID == req.DoctorID && existing.ScheduledAt.Equal(at) {
			return nil, ErrSlotTaken
		}
	}

	a := Appointment{ID: r.id(), PatientID: req.PatientID, DoctorID: req.DoctorID, ScheduledAt: at, Status: StatusScheduled}
	r.appointments[a.ID] = a
	return &a, nil
}

// ListAppointments returns matching appointments newest booking first.
func (r *InMemoryRepository) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]AppointmentDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []AppointmentDetail{}
	for _, a := range r.appointments {
		if !filter.matches(a) {
			continue
		}
		out = append(out, AppointmentDetail{
			Appointment: a,
			PatientName: r.patients[a.PatientID].Name,
			DoctorName:  r.doctors[a.DoctorID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) DeleteAppointment(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *InMemoryRepository) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]InventoryItem, 0, len(r.inventory))
	for _, item := range r.inventory {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetInventoryItem(ctx context.Context, id int64) (*InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.inventory[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r *InMemoryRepository) CreateInventoryItem(ctx context.Context, req *CreateInventoryRequest) (*InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextItemID++
	now := r.now().UTC()
	item := InventoryItem{
		ID:                r.nextItemID,
		Name:              req.Name,
		Category:          req.Category,
		Quantity:          req.Quantity,
		Unit:              req.Unit,
		LowStockThreshold: req.LowStockThreshold,
		CriticalThreshold: req.CriticalThreshold,
		LastRestocked:     &now,
		Notes:             req.Notes,
	}
	r.inventory[item.ID] = item
	return &item, nil
}

func (r *InMemoryRepository) UpdateInventoryItem(ctx context.Context, id int64, req *UpdateInventoryRequest) (*InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.inventory[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.apply(&item) {
		now := r.now().UTC()
		item.LastRestocked = &now
	}
	r.inventory[id] = item
	return &item, nil
}

func (r *InMemoryRepository) DeleteInventoryItem(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inventory[id]; !ok {
		return ErrNotFound
	}
	delete(r.inventory, id)
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}

var _ Repository = (*InMemoryRepository)(nil)
