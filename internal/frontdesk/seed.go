package frontdesk

import (
	"context"
	"fmt"

	"github.com/wolfman30/meditrack/pkg/logging"
)

func intPtr(v int) *int { return &v }

var sampleDoctors = []CreateDoctorRequest{
	{Name: "Dr. Arjun Mehta", Specialization: "Cardiologist", Position: "Head of Cardiology"},
	{Name: "Dr. Priya Sharma", Specialization: "Neurologist", Position: "Senior Consultant, Neurology"},
	{Name: "Dr. Ramesh Iyer", Specialization: "Pediatrician", Position: "Consultant, Pediatrics"},
	{Name: "Dr. Anjali Rao", Specialization: "Orthopedics", Position: "Consultant, Orthopedics"},
	{Name: "Dr. Vikram Singh", Specialization: "General Surgery", Position: "Senior Surgeon"},
	{Name: "Dr. Sneha Patel", Specialization: "Gynecology", Position: "Consultant, Obstetrics & Gynaecology"},
	{Name: "Dr. Karan Gupta", Specialization: "Dermatology", Position: "Dermatologist"},
	{Name: "Dr. Neha Kapoor", Specialization: "ENT", Position: "ENT Specialist"},
	{Name: "Dr. Amit Desai", Specialization: "Radiology", Position: "Head of Radiology"},
	{Name: "Dr. Suman Reddy", Specialization: "Oncology", Position: "Consultant, Medical Oncology"},
}

var sampleInventory = []CreateInventoryRequest{
	{Name: "Paracetamol 500mg", Category: "Medicine", Quantity: 25, Unit: "boxes", LowStockThreshold: intPtr(10)},
	{Name: "Bandages", Category: "Supplies", Quantity: 8, Unit: "boxes", LowStockThreshold: intPtr(10)},
	{Name: "Surgical Gloves", Category: "Equipment", Quantity: 15, Unit: "boxes", LowStockThreshold: intPtr(5)},
	{Name: "Antiseptic Solution", Category: "Medicine", Quantity: 12, Unit: "bottles", LowStockThreshold: intPtr(10)},
	{Name: "Syringes", Category: "Equipment", Quantity: 4, Unit: "boxes", LowStockThreshold: intPtr(5)},
}

// SeedSampleData adds the sample doctors and inventory to an empty store.
// Tables that already hold rows are left alone.
func SeedSampleData(ctx context.Context, repo Repository, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}

	doctors, err := repo.ListDoctors(ctx)
	if err != nil {
		return fmt.Errorf("frontdesk: seed: %w", err)
	}
	if len(doctors) == 0 {
		for i := range sampleDoctors {
			req := sampleDoctors[i]
			if _, err := repo.CreateDoctor(ctx, &req); err != nil {
				return fmt.Errorf("frontdesk: seed doctor %q: %w", req.Name, err)
			}
		}
		logger.Info("seeded sample doctors", "count", len(sampleDoctors))
	}

	items, err := repo.ListInventory(ctx)
	if err != nil {
		return fmt.Errorf("frontdesk: seed: %w", err)
	}
	if len(items) == 0 {
		for i := range sampleInventory {
			req := sampleInventory[i]
			if _, err := repo.CreateInventoryItem(ctx, &req); err != nil {
				return fmt.Errorf("frontdesk: seed inventory %q: %w", req.Name, err)
			}
		}
		logger.Info("seeded sample inventory", "count", len(sampleInventory))
	}
	return nil
}
