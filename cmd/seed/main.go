package main

import (
	"fmt"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/config"
	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/logger"
	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加客户
	clients := []models.Client{
		{
			CompanyName:   "环球贸易有限公司",
			ContactPerson: "王莉",
			Email:         "purchasing@globaltrade.example.com",
			Phone:         "+86-21-5555-0101",
			PaymentTerms:  30,
			Tier:          constants.TierA,
			IsActive:      true,
		},
		{
			CompanyName:   "Northwind Distribution GmbH",
			ContactPerson: "Stefan Maier",
			Email:         "einkauf@northwind.example.de",
			Phone:         "+49-40-5550-2020",
			PaymentTerms:  45,
			Tier:          constants.TierS,
			IsActive:      true,
		},
		{
			CompanyName:   "Pacific Wholesale Partners",
			ContactPerson: "Emily Chen",
			Email:         "orders@pacificwp.example.com",
			Phone:         "+1-415-555-0303",
			PaymentTerms:  60,
			Tier:          constants.TierX,
			IsActive:      true,
		},
	}

	clientIDs := map[string]uint{}
	for _, cl := range clients {
		var existing models.Client
		if err := models.DB.Where("email = ?", cl.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cl).Error; err != nil {
				stdLog.Printf("Failed to create client %s: %v", cl.CompanyName, err)
				continue
			}
			stdLog.Printf("Created client: %s", cl.CompanyName)
			clientIDs[cl.Email] = cl.ID
		} else {
			stdLog.Printf("Client already exists: %s", existing.CompanyName)
			clientIDs[cl.Email] = existing.ID
		}
	}

	// 添加商品
	products := []models.Product{
		{
			SKU:         "WID-STD-001",
			Name:        "标准工业阀门 DN50",
			Description: "碳钢材质，法兰连接，耐压 PN16。",
			Category:    "valves",
			Unit:        "pcs",
			MinOrderQty: 10,
			IsActive:    true,
		},
		{
			SKU:         "WID-STD-002",
			Name:        "电动执行器 220V",
			Description: "开关型，行程时间 15s，IP67。",
			Category:    "actuators",
			Unit:        "pcs",
			MinOrderQty: 5,
			IsActive:    true,
		},
		{
			SKU:         "WID-STD-003",
			Name:        "安装法兰套件",
			Description: "含螺栓、垫片与密封圈。",
			Category:    "fittings",
			Unit:        "set",
			MinOrderQty: 10,
			IsActive:    true,
		},
		{
			SKU:         "KIT-ACT-050",
			Name:        "电动阀门成套组件 DN50",
			Description: "阀体 + 执行器 + 安装套件，出厂前完成装配调试。",
			Category:    "kits",
			Unit:        "set",
			MinOrderQty: 1,
			IsActive:    true,
		},
	}

	productIDs := map[string]uint{}
	for _, prod := range products {
		var existing models.Product
		if err := models.DB.Where("sku = ?", prod.SKU).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.SKU, err)
				continue
			}
			stdLog.Printf("Created product: %s", prod.SKU)
			productIDs[prod.SKU] = prod.ID
		} else {
			stdLog.Printf("Product already exists: %s", existing.SKU)
			productIDs[prod.SKU] = existing.ID
		}
	}

	// 组合商品构成：成套组件 = 阀体 x1 + 执行器 x1 + 安装套件 x1
	kitID := productIDs["KIT-ACT-050"]
	componentPlans := []struct {
		ChildSKU string
		Quantity int
	}{
		{ChildSKU: "WID-STD-001", Quantity: 1},
		{ChildSKU: "WID-STD-002", Quantity: 1},
		{ChildSKU: "WID-STD-003", Quantity: 1},
	}
	if kitID != 0 {
		for _, plan := range componentPlans {
			childID := productIDs[plan.ChildSKU]
			if childID == 0 {
				continue
			}
			var existing models.ProductComponent
			if err := models.DB.Where("parent_product_id = ? AND child_product_id = ?", kitID, childID).First(&existing).Error; err != nil {
				edge := models.ProductComponent{
					ParentProductID: kitID,
					ChildProductID:  childID,
					Quantity:        plan.Quantity,
				}
				if err := models.DB.Create(&edge).Error; err != nil {
					stdLog.Printf("Failed to create component edge %s: %v", plan.ChildSKU, err)
				} else {
					stdLog.Printf("Created component edge: KIT-ACT-050 -> %s x%d", plan.ChildSKU, plan.Quantity)
				}
			}
		}
	}

	// 各档位基础价（开放区间，effective_to 为空）
	effectiveFrom := time.Now().AddDate(0, 0, -30).Truncate(24 * time.Hour)
	basePricePlans := []struct {
		SKU   string
		Tier  string
		Price float64
	}{
		{SKU: "WID-STD-001", Tier: constants.TierX, Price: 72.00},
		{SKU: "WID-STD-001", Tier: constants.TierS, Price: 80.00},
		{SKU: "WID-STD-001", Tier: constants.TierA, Price: 88.00},
		{SKU: "WID-STD-002", Tier: constants.TierX, Price: 145.00},
		{SKU: "WID-STD-002", Tier: constants.TierS, Price: 158.00},
		{SKU: "WID-STD-002", Tier: constants.TierA, Price: 172.00},
		{SKU: "WID-STD-003", Tier: constants.TierX, Price: 18.50},
		{SKU: "WID-STD-003", Tier: constants.TierS, Price: 21.00},
		{SKU: "WID-STD-003", Tier: constants.TierA, Price: 24.00},
	}
	// 成套组件不配基础价，价格由构成件逐级求和得出

	for _, plan := range basePricePlans {
		productID := productIDs[plan.SKU]
		if productID == 0 {
			continue
		}
		var existing models.BasePrice
		if err := models.DB.Where("product_id = ? AND tier = ? AND effective_to IS NULL", productID, plan.Tier).First(&existing).Error; err != nil {
			row := models.BasePrice{
				ProductID:     productID,
				Tier:          plan.Tier,
				Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(plan.Price)),
				EffectiveFrom: effectiveFrom,
			}
			if err := models.DB.Create(&row).Error; err != nil {
				stdLog.Printf("Failed to create base price %s/%s: %v", plan.SKU, plan.Tier, err)
			} else {
				stdLog.Printf("Created base price: %s %s = %.2f", plan.SKU, plan.Tier, plan.Price)
			}
		}
	}

	// 客户专属价：Pacific Wholesale 拿到阀体的协议价
	pacificID := clientIDs["orders@pacificwp.example.com"]
	valveID := productIDs["WID-STD-001"]
	if pacificID != 0 && valveID != 0 {
		var existing models.ClientPrice
		if err := models.DB.Where("client_id = ? AND product_id = ? AND effective_to IS NULL", pacificID, valveID).First(&existing).Error; err != nil {
			row := models.ClientPrice{
				ClientID:      pacificID,
				ProductID:     valveID,
				Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(68.00)),
				IsProtected:   true,
				EffectiveFrom: effectiveFrom,
			}
			if err := models.DB.Create(&row).Error; err != nil {
				stdLog.Printf("Failed to create client price: %v", err)
			} else {
				stdLog.Println("Created client price: Pacific Wholesale / WID-STD-001 = 68.00")
			}
		}
	}

	// 初始化仓库库存
	now := time.Now()
	inventoryPlans := []struct {
		SKU           string
		WarehouseCode string
		AvailableQty  int
	}{
		{SKU: "WID-STD-001", WarehouseCode: "WH-MAIN", AvailableQty: 500},
		{SKU: "WID-STD-001", WarehouseCode: "WH-EAST", AvailableQty: 120},
		{SKU: "WID-STD-002", WarehouseCode: "WH-MAIN", AvailableQty: 200},
		{SKU: "WID-STD-003", WarehouseCode: "WH-MAIN", AvailableQty: 800},
		{SKU: "KIT-ACT-050", WarehouseCode: "WH-MAIN", AvailableQty: 40},
	}

	for _, plan := range inventoryPlans {
		productID := productIDs[plan.SKU]
		if productID == 0 {
			continue
		}
		var existing models.Inventory
		if err := models.DB.Where("product_id = ? AND warehouse_code = ?", productID, plan.WarehouseCode).First(&existing).Error; err != nil {
			row := models.Inventory{
				ProductID:     productID,
				WarehouseCode: plan.WarehouseCode,
				AvailableQty:  plan.AvailableQty,
				LastSyncAt:    &now,
			}
			if err := models.DB.Create(&row).Error; err != nil {
				stdLog.Printf("Failed to create inventory %s/%s: %v", plan.SKU, plan.WarehouseCode, err)
			} else {
				stdLog.Printf("Created inventory: %s @ %s = %d", plan.SKU, plan.WarehouseCode, plan.AvailableQty)
			}
		} else {
			existing.AvailableQty = plan.AvailableQty
			existing.LastSyncAt = &now
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update inventory %s/%s: %v", plan.SKU, plan.WarehouseCode, err)
			} else {
				stdLog.Printf("Updated inventory: %s @ %s = %d", plan.SKU, plan.WarehouseCode, plan.AvailableQty)
			}
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Clients (X/S/A 档各一)")
	fmt.Println("- 4 Products (含 1 个成套组件)")
	fmt.Println("- 9 Base prices + 1 client price")
	fmt.Println("- 5 Inventory rows")
}
